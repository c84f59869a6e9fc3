package entity

import "time"

const DefaultMaxPerOrder = 10

type TicketType struct {
	ID          string    `db:"ticket_type_id"`
	EventID     string    `db:"event_id"`
	Name        string    `db:"name"`
	Price       Money     `db:"price"`
	Quantity    int       `db:"quantity"`
	Sold        int       `db:"sold"`
	Held        int       `db:"held"`
	MaxPerOrder int       `db:"max_per_order"`
	SaleStart   time.Time `db:"sale_start"`
	SaleEnd     time.Time `db:"sale_end"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (t TicketType) Available() int {
	return t.Quantity - t.Sold - t.Held
}

// SaleOpen reports whether now falls inside the inclusive sale window.
func (t TicketType) SaleOpen(now time.Time) bool {
	return !now.Before(t.SaleStart) && !now.After(t.SaleEnd)
}

type Availability struct {
	TicketTypeID string
	Available    int
	SaleOpen     bool
}
