package command

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

// RefundPayment asks the payment provider to return money captured for an order
// that could not be fulfilled.
type RefundPayment struct {
	Header           header       `json:"header"`
	OrderID          string       `json:"order_id"`
	PaymentReference string       `json:"payment_reference"`
	Amount           entity.Money `json:"amount"`
	Reason           string       `json:"reason"`
}

func NewRefundPayment(order entity.Order, reason string) RefundPayment {
	return RefundPayment{
		Header:           newHeader("refund-" + order.PaymentReference),
		OrderID:          order.ID,
		PaymentReference: order.PaymentReference,
		Amount:           order.Total(),
		Reason:           reason,
	}
}
