package entity_test

import (
	"testing"
	"time"

	"boxoffice/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_Total(t *testing.T) {
	vip, err := entity.NewMoney("49.99", "ngn")
	require.NoError(t, err)
	regular, err := entity.NewMoney("10", "NGN")
	require.NoError(t, err)

	order := entity.Order{
		Items: []entity.OrderItem{
			{TicketTypeID: "a", Quantity: 2, UnitPrice: vip},
			{TicketTypeID: "b", Quantity: 3, UnitPrice: regular},
		},
	}

	total := order.Total()
	assert.Equal(t, "129.98", total.Amount.StringFixed(2))
	assert.Equal(t, "NGN", total.Currency)
	assert.Equal(t, int64(12998), total.MinorUnits())
	assert.Equal(t, 5, order.TicketCount())
}

func TestTicketType_SaleOpen(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	tt := entity.TicketType{SaleStart: start, SaleEnd: end}

	assert.False(t, tt.SaleOpen(start.Add(-time.Nanosecond)))
	assert.True(t, tt.SaleOpen(start))
	assert.True(t, tt.SaleOpen(end))
	assert.False(t, tt.SaleOpen(end.Add(time.Nanosecond)))
}

func TestReservation_Expired(t *testing.T) {
	expiresAt := time.Date(2026, 5, 1, 10, 15, 0, 0, time.UTC)
	r := entity.Reservation{ExpiresAt: expiresAt}

	assert.False(t, r.Expired(expiresAt.Add(-time.Second)))
	assert.True(t, r.Expired(expiresAt))
}
