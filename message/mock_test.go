package message

import (
	"context"
	"errors"
	"sync"

	"boxoffice/entity"
)

type mockReceiptIssuer struct {
	lock     sync.Mutex
	receipts []issueReceiptRequest
	voided   []string
}

type issueReceiptRequest struct {
	idempotencyKey string
	ticketID       string
	price          entity.Money
}

func (m *mockReceiptIssuer) IssueReceipt(_ context.Context, idempotencyKey, ticketID string, price entity.Money) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.receipts = append(m.receipts, issueReceiptRequest{idempotencyKey: idempotencyKey, ticketID: ticketID, price: price})

	return nil
}

func (m *mockReceiptIssuer) VoidReceipt(_ context.Context, _, ticketID, _ string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.voided = append(m.voided, ticketID)

	return nil
}

type mockSpreadsheetAppender struct {
	lock sync.Mutex
	rows map[string][][]string
}

func (m *mockSpreadsheetAppender) AppendRow(_ context.Context, spreadsheetName string, row []string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.rows == nil {
		m.rows = make(map[string][][]string)
	}
	m.rows[spreadsheetName] = append(m.rows[spreadsheetName], row)

	return nil
}

type mockTicketGenerator struct {
	lock    sync.Mutex
	printed []PrintableTicket
	err     error
}

func (m *mockTicketGenerator) GenerateTicket(_ context.Context, ticket PrintableTicket) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.err != nil {
		return "", m.err
	}
	m.printed = append(m.printed, ticket)

	return ticket.TicketID + "-ticket.html", nil
}

type mockPublisher struct {
	lock   sync.Mutex
	events []any
}

func (m *mockPublisher) Publish(_ context.Context, event any) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.events = append(m.events, event)

	return nil
}

type mockPaymentRefunder struct {
	lock    sync.Mutex
	refunds []string
	failing bool
}

var errRefundRejected = errors.New("refund rejected")

func (m *mockPaymentRefunder) RefundPayment(_ context.Context, idempotencyKey, paymentReference, _ string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.failing {
		return errRefundRejected
	}
	m.refunds = append(m.refunds, idempotencyKey+"|"+paymentReference)

	return nil
}
