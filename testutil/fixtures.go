package testutil

import (
	"time"

	"boxoffice/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewTicketType returns a ticket type on sale from an hour before now until a
// day after it.
func NewTicketType(eventID string, quantity int, now time.Time) entity.TicketType {
	return entity.TicketType{
		ID:      uuid.NewString(),
		EventID: eventID,
		Name:    "General Admission",
		Price: entity.Money{
			Amount:   decimal.NewFromInt(5000),
			Currency: "NGN",
		},
		Quantity:    quantity,
		MaxPerOrder: entity.DefaultMaxPerOrder,
		SaleStart:   now.Add(-time.Hour),
		SaleEnd:     now.Add(24 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
