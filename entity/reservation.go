package entity

import (
	"sort"
	"time"
)

type ReservationState string

const (
	ReservationActive    ReservationState = "active"
	ReservationCommitted ReservationState = "committed"
	ReservationReleased  ReservationState = "released"
)

type CartLine struct {
	TicketTypeID string
	Quantity     int
}

type Reservation struct {
	ID         string            `db:"reservation_id"`
	EventID    string            `db:"event_id"`
	State      ReservationState  `db:"state"`
	Items      []ReservationItem `db:"-"`
	ExpiresAt  time.Time         `db:"expires_at"`
	CreatedAt  time.Time         `db:"created_at"`
	ResolvedAt *time.Time        `db:"resolved_at"`
}

type ReservationItem struct {
	ReservationID string `db:"reservation_id"`
	TicketTypeID  string `db:"ticket_type_id"`
	Quantity      int    `db:"quantity"`
	UnitPrice     Money  `db:"unit_price"`
}

// Expired reports whether the hold has reached its expiry instant.
func (r Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// TicketTypeIDs returns the held ticket types in ascending order, which is the lock order.
func (r Reservation) TicketTypeIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		ids = append(ids, item.TicketTypeID)
	}
	sort.Strings(ids)

	return ids
}

func (r Reservation) TotalQuantity() int {
	var total int
	for _, item := range r.Items {
		total += item.Quantity
	}

	return total
}
