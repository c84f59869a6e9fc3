package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boxoffice/clock"
	"boxoffice/entity"
	"boxoffice/event"
	"boxoffice/metrics"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

var (
	ErrWrongEvent        = errors.New("ticket is not valid for this event")
	ErrTicketCancelled   = errors.New("ticket has been cancelled")
	ErrTicketAlreadyUsed = errors.New("ticket has already been used")
)

type Outcome string

const (
	OutcomeCheckedIn   Outcome = "checked_in"
	OutcomeAlreadyUsed Outcome = "already_used"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TicketStore interface {
	Get(ctx context.Context, id string) (entity.Ticket, error)
	GetByNumber(ctx context.Context, ticketNumber string) (entity.Ticket, error)
	MarkUsed(ctx context.Context, id string, at time.Time) (entity.Ticket, bool, error)
	MarkCancelled(ctx context.Context, id string, at time.Time) (entity.Ticket, bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

type Result struct {
	Outcome Outcome
	Ticket  entity.Ticket
}

// Verifier admits tickets at the gate. A ticket moves from confirmed to used
// exactly once no matter how many scanners present it concurrently.
type Verifier struct {
	tx        Transactor
	tickets   TicketStore
	publisher Publisher
	clock     clock.Clock
}

func NewVerifier(tx Transactor, tickets TicketStore, publisher Publisher, c clock.Clock) *Verifier {
	return &Verifier{
		tx:        tx,
		tickets:   tickets,
		publisher: publisher,
		clock:     c,
	}
}

// VerifyAndCheckIn takes a canonical ticket number. Scanner input must be
// normalized before it gets here.
func (v *Verifier) VerifyAndCheckIn(ctx context.Context, eventID, ticketNumber string) (Result, error) {
	eventID = entity.CanonicalID(eventID)
	if eventID == "" {
		return Result{}, entity.ValidationError{Field: "event_id", Reason: "is required"}
	}
	if strings.TrimSpace(ticketNumber) == "" {
		return Result{}, entity.ValidationError{Field: "ticket_number", Reason: "is required"}
	}

	now := v.clock.Now()

	var result Result
	err := v.tx.WithTx(ctx, func(ctx context.Context) error {
		ticket, err := v.tickets.GetByNumber(ctx, ticketNumber)
		if err != nil {
			return err
		}
		if ticket.EventID != eventID {
			return ErrWrongEvent
		}

		switch ticket.Status {
		case entity.TicketCancelled:
			return ErrTicketCancelled
		case entity.TicketUsed:
			result = Result{Outcome: OutcomeAlreadyUsed, Ticket: ticket}
			return nil
		}

		used, ok, err := v.tickets.MarkUsed(ctx, ticket.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race with another scan or a cancellation.
			current, err := v.tickets.Get(ctx, ticket.ID)
			if err != nil {
				return err
			}
			if current.Status == entity.TicketCancelled {
				return ErrTicketCancelled
			}
			result = Result{Outcome: OutcomeAlreadyUsed, Ticket: current}
			return nil
		}

		if err := v.publisher.Publish(ctx, event.NewTicketCheckedIn(used)); err != nil {
			return fmt.Errorf("publishing ticket checked in: %w", err)
		}

		result = Result{Outcome: OutcomeCheckedIn, Ticket: used}
		return nil
	})
	if err != nil {
		metrics.ObserveCheckIn(checkInErrorLabel(err))
		return Result{}, err
	}

	metrics.ObserveCheckIn(string(result.Outcome))
	log.FromContext(ctx).
		WithField("ticket_id", result.Ticket.ID).
		WithField("outcome", result.Outcome).
		Info("Ticket scanned")

	return result, nil
}

// Cancel voids a confirmed ticket so it can no longer be admitted.
func (v *Verifier) Cancel(ctx context.Context, ticketID, reason string) (entity.Ticket, error) {
	now := v.clock.Now()

	var cancelled entity.Ticket
	err := v.tx.WithTx(ctx, func(ctx context.Context) error {
		ticket, ok, err := v.tickets.MarkCancelled(ctx, ticketID, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := v.tickets.Get(ctx, ticketID)
			if err != nil {
				return err
			}
			if current.Status == entity.TicketUsed {
				return ErrTicketAlreadyUsed
			}
			cancelled = current
			return nil
		}

		if err := v.publisher.Publish(ctx, event.NewTicketCancelled(ticket, reason)); err != nil {
			return fmt.Errorf("publishing ticket cancelled: %w", err)
		}
		cancelled = ticket

		return nil
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	return cancelled, nil
}

func checkInErrorLabel(err error) string {
	switch {
	case errors.Is(err, entity.ErrTicketNotFound):
		return "not_found"
	case errors.Is(err, ErrWrongEvent):
		return "wrong_event"
	case errors.Is(err, ErrTicketCancelled):
		return "cancelled"
	default:
		return "error"
	}
}
