package postgres

import (
	"context"
	"fmt"
	"time"

	"boxoffice/entity"

	"github.com/jmoiron/sqlx"
)

const reservationColumns = `reservation_id, event_id, state, expires_at, created_at, resolved_at`

type ReservationRepo struct {
	db *DB
}

func NewReservationRepo(db *DB) ReservationRepo {
	return ReservationRepo{
		db: db,
	}
}

func (r ReservationRepo) Add(ctx context.Context, reservation entity.Reservation) error {
	conn := r.db.conn(ctx)

	_, err := conn.ExecContext(ctx, `INSERT INTO reservations
		(reservation_id, event_id, state, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		reservation.ID, reservation.EventID, reservation.State, reservation.ExpiresAt, reservation.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}

	for _, item := range reservation.Items {
		_, err := conn.ExecContext(ctx, `INSERT INTO reservation_items
			(reservation_id, ticket_type_id, quantity, price_amount, price_currency)
			VALUES ($1, $2, $3, $4, $5)`,
			reservation.ID, item.TicketTypeID, item.Quantity, item.UnitPrice.Amount, item.UnitPrice.Currency)
		if err != nil {
			return fmt.Errorf("inserting reservation item: %w", err)
		}
	}

	return nil
}

func (r ReservationRepo) Get(ctx context.Context, id string) (entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = $1`, id)
}

func (r ReservationRepo) GetForUpdate(ctx context.Context, id string) (entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = $1 FOR UPDATE`, id)
}

func (r ReservationRepo) get(ctx context.Context, query, id string) (entity.Reservation, error) {
	conn := r.db.conn(ctx)

	var reservation entity.Reservation
	if err := sqlx.GetContext(ctx, conn, &reservation, query, id); err != nil {
		return entity.Reservation{}, notFound(err, entity.ErrReservationNotFound)
	}

	err := sqlx.SelectContext(ctx, conn, &reservation.Items, `SELECT
		reservation_id, ticket_type_id, quantity,
		price_amount AS "unit_price.amount",
		price_currency AS "unit_price.currency"
		FROM reservation_items WHERE reservation_id = $1 ORDER BY ticket_type_id`, id)
	if err != nil {
		return entity.Reservation{}, fmt.Errorf("selecting reservation items: %w", err)
	}

	return reservation, nil
}

// Transition moves a reservation from one state to another and reports
// whether the row was still in the expected state.
func (r ReservationRepo) Transition(
	ctx context.Context,
	id string,
	from, to entity.ReservationState,
	at time.Time,
) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE reservations
		SET state = $3, resolved_at = $4
		WHERE reservation_id = $1 AND state = $2`, id, from, to, at)
	if err != nil {
		return false, fmt.Errorf("updating reservation state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return n == 1, nil
}

// ListExpired returns active reservations whose expiry is at or before now,
// oldest first.
func (r ReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, r.db.conn(ctx), &ids, `SELECT reservation_id FROM reservations
		WHERE state = 'active' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting expired reservations: %w", err)
	}

	return ids, nil
}
