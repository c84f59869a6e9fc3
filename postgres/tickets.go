package postgres

import (
	"context"
	"fmt"
	"time"

	"boxoffice/entity"

	"github.com/jmoiron/sqlx"
)

const ticketColumns = `ticket_id, ticket_type_id, event_id, order_id, ticket_number,
	price_amount AS "price.amount",
	price_currency AS "price.currency",
	status, qr_payload, checked_in_at, cancelled_at, issued_at`

type TicketRepo struct {
	db *DB
}

func NewTicketRepo(db *DB) TicketRepo {
	return TicketRepo{
		db: db,
	}
}

func (r TicketRepo) Add(ctx context.Context, tickets ...entity.Ticket) error {
	conn := r.db.conn(ctx)

	for _, ticket := range tickets {
		_, err := conn.ExecContext(ctx, `INSERT INTO tickets
			(ticket_id, ticket_type_id, event_id, order_id, ticket_number, price_amount, price_currency, status, qr_payload, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			ticket.ID, ticket.TicketTypeID, ticket.EventID, ticket.OrderID, ticket.TicketNumber,
			ticket.Price.Amount, ticket.Price.Currency, ticket.Status, ticket.QRPayload, ticket.IssuedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("ticket number %s collides with an existing ticket: %w", ticket.TicketNumber, err)
			}
			return fmt.Errorf("inserting ticket: %w", err)
		}
	}

	return nil
}

func (r TicketRepo) Get(ctx context.Context, id string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := sqlx.GetContext(ctx, r.db.conn(ctx), &ticket,
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, id)
	if err != nil {
		return entity.Ticket{}, notFound(err, entity.ErrTicketNotFound)
	}

	return ticket, nil
}

func (r TicketRepo) GetByNumber(ctx context.Context, ticketNumber string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := sqlx.GetContext(ctx, r.db.conn(ctx), &ticket,
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_number = $1`, ticketNumber)
	if err != nil {
		return entity.Ticket{}, notFound(err, entity.ErrTicketNotFound)
	}

	return ticket, nil
}

func (r TicketRepo) ListByOrder(ctx context.Context, orderID string) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := sqlx.SelectContext(ctx, r.db.conn(ctx), &tickets,
		`SELECT `+ticketColumns+` FROM tickets WHERE order_id = $1 ORDER BY ticket_number`, orderID)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("selecting tickets: %w", err)
	}

	return tickets, nil
}

// MarkUsed flips a confirmed ticket to used. It reports false, with no
// change, when the ticket was not confirmed at the time of the update.
func (r TicketRepo) MarkUsed(ctx context.Context, id string, at time.Time) (entity.Ticket, bool, error) {
	return r.transition(ctx, `UPDATE tickets SET status = 'used', checked_in_at = $2
		WHERE ticket_id = $1 AND status = 'confirmed'
		RETURNING `+ticketColumns, id, at)
}

// MarkCancelled flips a confirmed ticket to cancelled, with the same
// contract as MarkUsed.
func (r TicketRepo) MarkCancelled(ctx context.Context, id string, at time.Time) (entity.Ticket, bool, error) {
	return r.transition(ctx, `UPDATE tickets SET status = 'cancelled', cancelled_at = $2
		WHERE ticket_id = $1 AND status = 'confirmed'
		RETURNING `+ticketColumns, id, at)
}

func (r TicketRepo) transition(ctx context.Context, query, id string, at time.Time) (entity.Ticket, bool, error) {
	var tickets []entity.Ticket
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &tickets, query, id, at); err != nil {
		return entity.Ticket{}, false, fmt.Errorf("updating ticket status: %w", notFound(err, entity.ErrTicketNotFound))
	}
	if len(tickets) == 0 {
		return entity.Ticket{}, false, nil
	}

	return tickets[0], true, nil
}
