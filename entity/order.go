package entity

import "time"

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

const (
	FailureAuthorization      = "authorization_failed"
	FailurePayment            = "payment_failed"
	FailureReservationExpired = "reservation_expired"
)

type Order struct {
	ID               string      `db:"order_id"`
	EventID          string      `db:"event_id"`
	BuyerRef         string      `db:"buyer_ref"`
	ReservationID    string      `db:"reservation_id"`
	Status           OrderStatus `db:"status"`
	PaymentReference string      `db:"payment_reference"`
	AuthorizationURL string      `db:"authorization_url"`
	FailureReason    string      `db:"failure_reason"`
	Items            []OrderItem `db:"-"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

type OrderItem struct {
	OrderID      string `db:"order_id"`
	TicketTypeID string `db:"ticket_type_id"`
	Quantity     int    `db:"quantity"`
	UnitPrice    Money  `db:"unit_price"`
}

func (o Order) Total() Money {
	var total Money
	for _, item := range o.Items {
		total = total.Plus(item.UnitPrice.Times(item.Quantity))
	}

	return total
}

func (o Order) TicketCount() int {
	var count int
	for _, item := range o.Items {
		count += item.Quantity
	}

	return count
}
