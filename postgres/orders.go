package postgres

import (
	"context"
	"fmt"
	"time"

	"boxoffice/entity"

	"github.com/jmoiron/sqlx"
)

const orderColumns = `order_id, event_id, buyer_ref, reservation_id, status,
	COALESCE(payment_reference, '') AS payment_reference,
	authorization_url, failure_reason, created_at, updated_at`

type OrderRepo struct {
	db *DB
}

func NewOrderRepo(db *DB) OrderRepo {
	return OrderRepo{
		db: db,
	}
}

func (r OrderRepo) Add(ctx context.Context, order entity.Order) error {
	conn := r.db.conn(ctx)

	_, err := conn.ExecContext(ctx, `INSERT INTO orders
		(order_id, event_id, buyer_ref, reservation_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID, order.EventID, order.BuyerRef, order.ReservationID, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	for _, item := range order.Items {
		_, err := conn.ExecContext(ctx, `INSERT INTO order_items
			(order_id, ticket_type_id, quantity, price_amount, price_currency)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, item.TicketTypeID, item.Quantity, item.UnitPrice.Amount, item.UnitPrice.Currency)
		if err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}
	}

	return nil
}

func (r OrderRepo) Get(ctx context.Context, id string) (entity.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, id)
}

func (r OrderRepo) GetForUpdate(ctx context.Context, id string) (entity.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE`, id)
}

func (r OrderRepo) GetByReferenceForUpdate(ctx context.Context, reference string) (entity.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1 FOR UPDATE`, reference)
}

func (r OrderRepo) get(ctx context.Context, query, arg string) (entity.Order, error) {
	conn := r.db.conn(ctx)

	var order entity.Order
	if err := sqlx.GetContext(ctx, conn, &order, query, arg); err != nil {
		return entity.Order{}, notFound(err, entity.ErrOrderNotFound)
	}

	err := sqlx.SelectContext(ctx, conn, &order.Items, `SELECT
		order_id, ticket_type_id, quantity,
		price_amount AS "unit_price.amount",
		price_currency AS "unit_price.currency"
		FROM order_items WHERE order_id = $1 ORDER BY ticket_type_id`, order.ID)
	if err != nil {
		return entity.Order{}, fmt.Errorf("selecting order items: %w", err)
	}

	return order, nil
}

func (r OrderRepo) SetPaymentReference(ctx context.Context, id, reference, authorizationURL string) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE orders
		SET payment_reference = $2, authorization_url = $3, updated_at = NOW()
		WHERE order_id = $1 AND status = 'pending'`, id, reference, authorizationURL)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment reference %s already in use: %w", reference, err)
		}
		return fmt.Errorf("updating payment reference: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("order %s is no longer pending", id)
	}

	return nil
}

// Transition moves an order between statuses and reports whether it was
// still in the expected one.
func (r OrderRepo) Transition(
	ctx context.Context,
	id string,
	from, to entity.OrderStatus,
	failureReason string,
) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE orders
		SET status = $3, failure_reason = $4, updated_at = NOW()
		WHERE order_id = $1 AND status = $2`, id, from, to, failureReason)
	if err != nil {
		return false, fmt.Errorf("updating order status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return n == 1, nil
}

// RecordConfirmation stores the first confirmation seen for a payment
// reference and outcome. It reports false when that pair was already processed.
func (r OrderRepo) RecordConfirmation(ctx context.Context, reference, outcome string, at time.Time) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `INSERT INTO payment_confirmations
		(payment_reference, outcome, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (payment_reference, outcome) DO NOTHING`, reference, outcome, at)
	if err != nil {
		return false, fmt.Errorf("inserting payment confirmation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return n == 1, nil
}

// ListStalePending returns pending orders whose reservation has expired.
func (r OrderRepo) ListStalePending(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, r.db.conn(ctx), &ids, `SELECT o.order_id FROM orders o
		JOIN reservations r ON r.reservation_id = o.reservation_id
		WHERE o.status = 'pending' AND r.expires_at <= $1
		ORDER BY r.expires_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting stale orders: %w", err)
	}

	return ids, nil
}
