package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"boxoffice/command"
	"boxoffice/entity"
	"boxoffice/event"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuedTicket() entity.Ticket {
	return entity.Ticket{
		ID:           "d3b5f1a2-7c41-4e0a-9a53-6f1f0f6f6b11",
		TicketTypeID: "0b6f1c22-3e55-4bb4-8a0e-1a59f5f3c2aa",
		EventID:      "evt-1",
		OrderID:      "ord-1",
		TicketNumber: "TKT-0123456789ABCDEF",
		Price:        entity.Money{Amount: decimal.NewFromInt(5000), Currency: "NGN"},
		Status:       entity.TicketConfirmed,
		QRPayload:    "BX1.payload.mac",
	}
}

func TestHandleIssueReceipt(t *testing.T) {
	issuer := &mockReceiptIssuer{}
	ticket := issuedTicket()

	issued := event.NewTicketIssued(ticket, "buyer@example.com")

	err := handleIssueReceipt(issuer)(context.Background(), &issued)
	require.NoError(t, err)

	require.Len(t, issuer.receipts, 1)
	assert.Equal(t, ticket.ID, issuer.receipts[0].ticketID)
	assert.Equal(t, "ticket-issued-"+ticket.ID, issuer.receipts[0].idempotencyKey)
	assert.True(t, ticket.Price.Amount.Equal(issuer.receipts[0].price.Amount))
}

func TestHandleVoidReceipt(t *testing.T) {
	issuer := &mockReceiptIssuer{}
	cancelled := event.NewTicketCancelled(issuedTicket(), "duplicate purchase")

	require.NoError(t, handleVoidReceipt(issuer)(context.Background(), &cancelled))
	assert.Equal(t, []string{cancelled.TicketID}, issuer.voided)
}

func TestHandlePrintTicketPublishesTicketPrinted(t *testing.T) {
	generator := &mockTicketGenerator{}
	publisher := &mockPublisher{}
	issued := event.NewTicketIssued(issuedTicket(), "buyer@example.com")

	err := handlePrintTicket(generator, publisher)(context.Background(), &issued)
	require.NoError(t, err)

	require.Len(t, generator.printed, 1)
	assert.Equal(t, "TKT-0123456789ABCDEF", generator.printed[0].TicketNumber)
	assert.Equal(t, "BX1.payload.mac", generator.printed[0].QRPayload)

	require.Len(t, publisher.events, 1)
	printed, ok := publisher.events[0].(event.TicketPrinted)
	require.True(t, ok)
	assert.Equal(t, issued.TicketID, printed.TicketID)
	assert.Equal(t, issued.TicketID+"-ticket.html", printed.FileName)
	assert.Equal(t, issued.Header.IdempotencyKey, printed.Header.IdempotencyKey)
}

func TestHandlePrintTicketDoesNotPublishOnFailure(t *testing.T) {
	generator := &mockTicketGenerator{err: errors.New("files unavailable")}
	publisher := &mockPublisher{}
	issued := event.NewTicketIssued(issuedTicket(), "buyer@example.com")

	err := handlePrintTicket(generator, publisher)(context.Background(), &issued)
	require.Error(t, err)
	assert.Empty(t, publisher.events)
}

func TestTrackerHandlersAppendRows(t *testing.T) {
	sheets := &mockSpreadsheetAppender{}
	ctx := context.Background()

	ticket := issuedTicket()
	issued := event.NewTicketIssued(ticket, "buyer@example.com")
	require.NoError(t, handleAppendIssuedToTracker(sheets)(ctx, &issued))

	checkedInAt := time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC)
	ticket.CheckedInAt = &checkedInAt
	checkedIn := event.NewTicketCheckedIn(ticket)
	require.NoError(t, handleAppendCheckInToTracker(sheets)(ctx, &checkedIn))

	cancelled := event.NewTicketCancelled(ticket, "duplicate purchase")
	require.NoError(t, handleAppendCancelledToTracker(sheets)(ctx, &cancelled))

	assert.Equal(t, [][]string{{"TKT-0123456789ABCDEF", "evt-1", "buyer@example.com", "5000.00", "NGN"}}, sheets.rows[sheetTicketsIssued])
	assert.Equal(t, [][]string{{"TKT-0123456789ABCDEF", "evt-1", "2026-05-01T19:30:00Z"}}, sheets.rows[sheetCheckIns])
	assert.Equal(t, [][]string{{"TKT-0123456789ABCDEF", "evt-1", "5000.00", "NGN", "duplicate purchase"}}, sheets.rows[sheetTicketsCancelled])
}

func TestHandleRefundPayment(t *testing.T) {
	order := entity.Order{ID: "ord-1", PaymentReference: "BX-abc"}
	cmd := command.NewRefundPayment(order, entity.FailureReservationExpired)

	refunder := &mockPaymentRefunder{}
	require.NoError(t, handleRefundPayment(refunder)(context.Background(), &cmd))
	assert.Equal(t, []string{"refund-BX-abc|BX-abc"}, refunder.refunds)

	refunder.failing = true
	err := handleRefundPayment(refunder)(context.Background(), &cmd)
	assert.ErrorIs(t, err, errRefundRejected)
}

func TestPoisonQueueMiddlewareSkipsMalformedPayloads(t *testing.T) {
	called := 0
	handler := poisonQueueMiddleware(func(msg *message.Message) ([]*message.Message, error) {
		called++
		return nil, nil
	})

	_, err := handler(message.NewMessage(watermill.NewUUID(), []byte("not json")))
	require.NoError(t, err)
	assert.Equal(t, 0, called)

	_, err = handler(message.NewMessage(watermill.NewUUID(), []byte(`{"ticket_id":"x"}`)))
	require.NoError(t, err)
	assert.Equal(t, 1, called)
}
