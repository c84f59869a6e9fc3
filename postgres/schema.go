package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []struct {
	name  string
	query string
}{
	{
		name: "ticket_types",
		query: `CREATE TABLE IF NOT EXISTS ticket_types (
			ticket_type_id UUID PRIMARY KEY,
			event_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			price_amount NUMERIC(12, 2) NOT NULL CHECK (price_amount >= 0),
			price_currency CHAR(3) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			sold INTEGER NOT NULL DEFAULT 0,
			held INTEGER NOT NULL DEFAULT 0,
			max_per_order INTEGER NOT NULL CHECK (max_per_order > 0),
			sale_start TIMESTAMPTZ NOT NULL,
			sale_end TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT ticket_types_allocation_check CHECK (sold >= 0 AND held >= 0 AND sold + held <= quantity),
			CONSTRAINT ticket_types_sale_window_check CHECK (sale_start < sale_end)
		);
		CREATE INDEX IF NOT EXISTS ticket_types_event_id_idx ON ticket_types (event_id);`,
	},
	{
		name: "reservations",
		query: `CREATE TABLE IF NOT EXISTS reservations (
			reservation_id UUID PRIMARY KEY,
			event_id UUID NOT NULL,
			state VARCHAR(16) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS reservations_active_expiry_idx ON reservations (expires_at) WHERE state = 'active';
		CREATE TABLE IF NOT EXISTS reservation_items (
			reservation_id UUID NOT NULL REFERENCES reservations (reservation_id),
			ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price_amount NUMERIC(12, 2) NOT NULL,
			price_currency CHAR(3) NOT NULL,
			PRIMARY KEY (reservation_id, ticket_type_id)
		);`,
	},
	{
		name: "orders",
		query: `CREATE TABLE IF NOT EXISTS orders (
			order_id UUID PRIMARY KEY,
			event_id UUID NOT NULL,
			buyer_ref VARCHAR(255) NOT NULL,
			reservation_id UUID NOT NULL UNIQUE REFERENCES reservations (reservation_id),
			status VARCHAR(16) NOT NULL,
			payment_reference VARCHAR(255) UNIQUE,
			authorization_url TEXT NOT NULL DEFAULT '',
			failure_reason VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS order_items (
			order_id UUID NOT NULL REFERENCES orders (order_id),
			ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price_amount NUMERIC(12, 2) NOT NULL,
			price_currency CHAR(3) NOT NULL,
			PRIMARY KEY (order_id, ticket_type_id)
		);
		CREATE TABLE IF NOT EXISTS payment_confirmations (
			payment_reference VARCHAR(255) NOT NULL,
			outcome VARCHAR(16) NOT NULL,
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (payment_reference, outcome)
		);`,
	},
	{
		name: "tickets",
		query: `CREATE TABLE IF NOT EXISTS tickets (
			ticket_id UUID PRIMARY KEY,
			ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
			event_id UUID NOT NULL,
			order_id UUID NOT NULL REFERENCES orders (order_id),
			ticket_number VARCHAR(64) NOT NULL UNIQUE,
			price_amount NUMERIC(12, 2) NOT NULL,
			price_currency CHAR(3) NOT NULL,
			status VARCHAR(16) NOT NULL,
			qr_payload TEXT NOT NULL,
			checked_in_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS tickets_order_id_idx ON tickets (order_id);`,
	},
}

func InitialiseDB(ctx context.Context, db *sqlx.DB) error {
	for _, table := range schema {
		if _, err := db.ExecContext(ctx, table.query); err != nil {
			return fmt.Errorf("creating %s table: %w", table.name, err)
		}
	}

	return nil
}
