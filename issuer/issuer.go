package issuer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"boxoffice/clock"
	"boxoffice/entity"
	"boxoffice/event"
	"boxoffice/metrics"

	"github.com/google/uuid"
)

const numberPrefix = "TKT-"

type TicketStore interface {
	Add(ctx context.Context, tickets ...entity.Ticket) error
}

type Signer interface {
	Sign(ticket entity.Ticket) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Issuer mints tickets for a paid order. It must run inside the transaction
// that commits the order's reservation.
type Issuer struct {
	tickets   TicketStore
	signer    Signer
	publisher Publisher
	clock     clock.Clock
}

func New(tickets TicketStore, signer Signer, publisher Publisher, c clock.Clock) *Issuer {
	return &Issuer{
		tickets:   tickets,
		signer:    signer,
		publisher: publisher,
		clock:     c,
	}
}

// Issue creates one ticket per purchased unit, priced from the order item.
func (i *Issuer) Issue(ctx context.Context, order entity.Order) ([]entity.Ticket, error) {
	now := i.clock.Now()

	tickets := make([]entity.Ticket, 0, order.TicketCount())
	for _, item := range order.Items {
		for n := 0; n < item.Quantity; n++ {
			number, err := NewTicketNumber()
			if err != nil {
				return nil, err
			}

			ticket := entity.Ticket{
				ID:           uuid.NewString(),
				TicketTypeID: item.TicketTypeID,
				EventID:      order.EventID,
				OrderID:      order.ID,
				TicketNumber: number,
				Price:        item.UnitPrice,
				Status:       entity.TicketConfirmed,
				IssuedAt:     now,
			}

			ticket.QRPayload, err = i.signer.Sign(ticket)
			if err != nil {
				return nil, fmt.Errorf("signing ticket payload: %w", err)
			}

			tickets = append(tickets, ticket)
		}
	}

	if err := i.tickets.Add(ctx, tickets...); err != nil {
		return nil, fmt.Errorf("storing tickets: %w", err)
	}

	for _, ticket := range tickets {
		if err := i.publisher.Publish(ctx, event.NewTicketIssued(ticket, order.BuyerRef)); err != nil {
			return nil, fmt.Errorf("publishing ticket issued: %w", err)
		}
	}

	metrics.ObserveTicketsIssued(len(tickets))

	return tickets, nil
}

// NewTicketNumber returns a human-typeable number carrying 64 random bits.
func NewTicketNumber() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating ticket number: %w", err)
	}

	return numberPrefix + strings.ToUpper(hex.EncodeToString(b)), nil
}
