package entity

import "time"

type TicketStatus string

const (
	TicketConfirmed TicketStatus = "confirmed"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID           string       `db:"ticket_id"`
	TicketTypeID string       `db:"ticket_type_id"`
	EventID      string       `db:"event_id"`
	OrderID      string       `db:"order_id"`
	TicketNumber string       `db:"ticket_number"`
	Price        Money        `db:"price"`
	Status       TicketStatus `db:"status"`
	QRPayload    string       `db:"qr_payload"`
	CheckedInAt  *time.Time   `db:"checked_in_at"`
	CancelledAt  *time.Time   `db:"cancelled_at"`
	IssuedAt     time.Time    `db:"issued_at"`
}
