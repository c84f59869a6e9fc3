package postgres

import (
	"context"
	"fmt"

	"boxoffice/entity"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const ticketTypeColumns = `ticket_type_id, event_id, name,
	price_amount AS "price.amount",
	price_currency AS "price.currency",
	quantity, sold, held, max_per_order, sale_start, sale_end, created_at, updated_at`

type TicketTypeRepo struct {
	db *DB
}

func NewTicketTypeRepo(db *DB) TicketTypeRepo {
	return TicketTypeRepo{
		db: db,
	}
}

func (r TicketTypeRepo) Add(ctx context.Context, tt entity.TicketType) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `INSERT INTO ticket_types
		(ticket_type_id, event_id, name, price_amount, price_currency, quantity, max_per_order, sale_start, sale_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tt.ID, tt.EventID, tt.Name, tt.Price.Amount, tt.Price.Currency, tt.Quantity, tt.MaxPerOrder,
		tt.SaleStart, tt.SaleEnd, tt.CreatedAt, tt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting ticket type: %w", err)
	}

	return nil
}

// Update rewrites the definition of a ticket type. Counters are left alone.
func (r TicketTypeRepo) Update(ctx context.Context, tt entity.TicketType) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE ticket_types SET
		name = $2, price_amount = $3, price_currency = $4, quantity = $5, max_per_order = $6,
		sale_start = $7, sale_end = $8, updated_at = $9
		WHERE ticket_type_id = $1`,
		tt.ID, tt.Name, tt.Price.Amount, tt.Price.Currency, tt.Quantity, tt.MaxPerOrder,
		tt.SaleStart, tt.SaleEnd, tt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating ticket type: %w", notFound(err, entity.ErrTicketTypeNotFound))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return entity.ErrTicketTypeNotFound
	}

	return nil
}

func (r TicketTypeRepo) Get(ctx context.Context, id string) (entity.TicketType, error) {
	var tt entity.TicketType
	err := sqlx.GetContext(ctx, r.db.conn(ctx), &tt,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE ticket_type_id = $1`, id)
	if err != nil {
		return entity.TicketType{}, notFound(err, entity.ErrTicketTypeNotFound)
	}

	return tt, nil
}

func (r TicketTypeRepo) GetForUpdate(ctx context.Context, id string) (entity.TicketType, error) {
	var tt entity.TicketType
	err := sqlx.GetContext(ctx, r.db.conn(ctx), &tt,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE ticket_type_id = $1 FOR UPDATE`, id)
	if err != nil {
		return entity.TicketType{}, notFound(err, entity.ErrTicketTypeNotFound)
	}

	return tt, nil
}

func (r TicketTypeRepo) ListByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error) {
	var types []entity.TicketType
	err := sqlx.SelectContext(ctx, r.db.conn(ctx), &types,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE event_id = $1 ORDER BY sale_start, name`, eventID)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("selecting ticket types: %w", err)
	}

	return types, nil
}

// LockMany locks the rows of the given ticket types in ascending id order.
// Ids that do not exist are simply absent from the result.
func (r TicketTypeRepo) LockMany(ctx context.Context, ids []string) ([]entity.TicketType, error) {
	var types []entity.TicketType
	err := sqlx.SelectContext(ctx, r.db.conn(ctx), &types,
		`SELECT `+ticketTypeColumns+` FROM ticket_types
		WHERE ticket_type_id = ANY($1::uuid[])
		ORDER BY ticket_type_id
		FOR UPDATE`, pq.Array(ids))
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return nil, entity.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("locking ticket types: %w", err)
	}

	return types, nil
}

// AdjustCounters moves held and sold by the given deltas. The table's
// allocation constraint rejects any change that would oversell.
func (r TicketTypeRepo) AdjustCounters(ctx context.Context, id string, heldDelta, soldDelta int) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE ticket_types
		SET held = held + $2, sold = sold + $3, updated_at = NOW()
		WHERE ticket_type_id = $1`, id, heldDelta, soldDelta)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("ticket type %s allocation out of bounds: %w", id, err)
		}
		return fmt.Errorf("adjusting ticket type counters: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected exec result: %d rows affected", n)
	}

	return nil
}
