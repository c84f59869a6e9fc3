package event

import (
	"time"

	"boxoffice/entity"

	"github.com/ThreeDotsLabs/watermill"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func newHeader(idempotencyKey string) header {
	return header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type OrderPlaced struct {
	Header        header       `json:"header"`
	OrderID       string       `json:"order_id"`
	EventID       string       `json:"event_id"`
	BuyerRef      string       `json:"buyer_ref"`
	ReservationID string       `json:"reservation_id"`
	Total         entity.Money `json:"total"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

func NewOrderPlaced(order entity.Order, expiresAt time.Time) OrderPlaced {
	return OrderPlaced{
		Header:        newHeader("order-placed-" + order.ID),
		OrderID:       order.ID,
		EventID:       order.EventID,
		BuyerRef:      order.BuyerRef,
		ReservationID: order.ReservationID,
		Total:         order.Total(),
		ExpiresAt:     expiresAt,
	}
}

type OrderPaid struct {
	Header           header   `json:"header"`
	OrderID          string   `json:"order_id"`
	EventID          string   `json:"event_id"`
	PaymentReference string   `json:"payment_reference"`
	TicketIDs        []string `json:"ticket_ids"`
}

func NewOrderPaid(order entity.Order, tickets []entity.Ticket) OrderPaid {
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}

	return OrderPaid{
		Header:           newHeader("order-paid-" + order.ID),
		OrderID:          order.ID,
		EventID:          order.EventID,
		PaymentReference: order.PaymentReference,
		TicketIDs:        ids,
	}
}

type OrderFailed struct {
	Header   header `json:"header"`
	OrderID  string `json:"order_id"`
	EventID  string `json:"event_id"`
	BuyerRef string `json:"buyer_ref"`
	Reason   string `json:"reason"`
}

func NewOrderFailed(order entity.Order, reason string) OrderFailed {
	return OrderFailed{
		Header:   newHeader("order-failed-" + order.ID),
		OrderID:  order.ID,
		EventID:  order.EventID,
		BuyerRef: order.BuyerRef,
		Reason:   reason,
	}
}

type TicketIssued struct {
	Header       header       `json:"header"`
	TicketID     string       `json:"ticket_id"`
	TicketNumber string       `json:"ticket_number"`
	TicketTypeID string       `json:"ticket_type_id"`
	EventID      string       `json:"event_id"`
	OrderID      string       `json:"order_id"`
	BuyerRef     string       `json:"buyer_ref"`
	Price        entity.Money `json:"price"`
	QRPayload    string       `json:"qr_payload"`
}

func NewTicketIssued(ticket entity.Ticket, buyerRef string) TicketIssued {
	return TicketIssued{
		Header:       newHeader("ticket-issued-" + ticket.ID),
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		TicketTypeID: ticket.TicketTypeID,
		EventID:      ticket.EventID,
		OrderID:      ticket.OrderID,
		BuyerRef:     buyerRef,
		Price:        ticket.Price,
		QRPayload:    ticket.QRPayload,
	}
}

type TicketCheckedIn struct {
	Header       header    `json:"header"`
	TicketID     string    `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	EventID      string    `json:"event_id"`
	CheckedInAt  time.Time `json:"checked_in_at"`
}

func NewTicketCheckedIn(ticket entity.Ticket) TicketCheckedIn {
	var checkedInAt time.Time
	if ticket.CheckedInAt != nil {
		checkedInAt = *ticket.CheckedInAt
	}

	return TicketCheckedIn{
		Header:       newHeader("ticket-checked-in-" + ticket.ID),
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		EventID:      ticket.EventID,
		CheckedInAt:  checkedInAt,
	}
}

type TicketCancelled struct {
	Header       header       `json:"header"`
	TicketID     string       `json:"ticket_id"`
	TicketNumber string       `json:"ticket_number"`
	EventID      string       `json:"event_id"`
	Price        entity.Money `json:"price"`
	Reason       string       `json:"reason"`
}

func NewTicketCancelled(ticket entity.Ticket, reason string) TicketCancelled {
	return TicketCancelled{
		Header:       newHeader("ticket-cancelled-" + ticket.ID),
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		EventID:      ticket.EventID,
		Price:        ticket.Price,
		Reason:       reason,
	}
}

type TicketPrinted struct {
	Header   header `json:"header"`
	TicketID string `json:"ticket_id"`
	FileName string `json:"file_name"`
}

func NewTicketPrinted(idempotencyKey, ticketID, fileName string) TicketPrinted {
	return TicketPrinted{
		Header:   newHeader(idempotencyKey),
		TicketID: ticketID,
		FileName: fileName,
	}
}
