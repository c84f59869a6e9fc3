package http_test

import (
	"context"

	"boxoffice/catalog"
	"boxoffice/checkin"
	"boxoffice/checkout"
	"boxoffice/entity"

	"github.com/stretchr/testify/mock"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Create(ctx context.Context, eventID string, def catalog.Definition) (entity.TicketType, error) {
	args := m.Called(ctx, eventID, def)
	return args.Get(0).(entity.TicketType), args.Error(1)
}

func (m *mockCatalog) Update(ctx context.Context, id string, def catalog.Definition) (entity.TicketType, error) {
	args := m.Called(ctx, id, def)
	return args.Get(0).(entity.TicketType), args.Error(1)
}

func (m *mockCatalog) ListByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]entity.TicketType), args.Error(1)
}

func (m *mockCatalog) GetAvailability(ctx context.Context, id string) (entity.Availability, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.Availability), args.Error(1)
}

type mockCheckout struct {
	mock.Mock
}

func (m *mockCheckout) StartCheckout(ctx context.Context, req checkout.Request) (checkout.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(checkout.Result), args.Error(1)
}

func (m *mockCheckout) Confirm(ctx context.Context, c checkout.Confirmation) (checkout.ConfirmResult, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(checkout.ConfirmResult), args.Error(1)
}

func (m *mockCheckout) GetOrder(ctx context.Context, id string) (checkout.OrderDetails, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(checkout.OrderDetails), args.Error(1)
}

type mockCheckIn struct {
	mock.Mock
}

func (m *mockCheckIn) VerifyAndCheckIn(ctx context.Context, eventID, ticketNumber string) (checkin.Result, error) {
	args := m.Called(ctx, eventID, ticketNumber)
	return args.Get(0).(checkin.Result), args.Error(1)
}

func (m *mockCheckIn) Cancel(ctx context.Context, ticketID, reason string) (entity.Ticket, error) {
	args := m.Called(ctx, ticketID, reason)
	return args.Get(0).(entity.Ticket), args.Error(1)
}
