package message

import (
	"context"
	"fmt"

	"boxoffice/command"
	"boxoffice/entity"
	"boxoffice/event"
)

const (
	sheetTicketsIssued    = "tickets-issued"
	sheetCheckIns         = "check-ins"
	sheetTicketsCancelled = "tickets-cancelled"
)

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

type ReceiptIssuer interface {
	IssueReceipt(ctx context.Context, idempotencyKey, ticketID string, price entity.Money) error
	VoidReceipt(ctx context.Context, idempotencyKey, ticketID, reason string) error
}

type SpreadsheetAppender interface {
	AppendRow(ctx context.Context, spreadsheetName string, row []string) error
}

type PrintableTicket struct {
	TicketID     string
	TicketNumber string
	EventID      string
	Price        entity.Money
	QRPayload    string
}

type TicketGenerator interface {
	GenerateTicket(ctx context.Context, ticket PrintableTicket) (string, error)
}

type PaymentRefunder interface {
	RefundPayment(ctx context.Context, idempotencyKey, paymentReference, reason string) error
}

func handleIssueReceipt(r ReceiptIssuer) func(ctx context.Context, e *event.TicketIssued) error {
	return func(ctx context.Context, e *event.TicketIssued) error {
		if err := r.IssueReceipt(ctx, e.Header.IdempotencyKey, e.TicketID, e.Price); err != nil {
			return fmt.Errorf("issuing receipt: %w", err)
		}

		return nil
	}
}

func handleVoidReceipt(r ReceiptIssuer) func(ctx context.Context, e *event.TicketCancelled) error {
	return func(ctx context.Context, e *event.TicketCancelled) error {
		if err := r.VoidReceipt(ctx, e.Header.IdempotencyKey, e.TicketID, e.Reason); err != nil {
			return fmt.Errorf("voiding receipt: %w", err)
		}

		return nil
	}
}

func handlePrintTicket(g TicketGenerator, p Publisher) func(ctx context.Context, e *event.TicketIssued) error {
	return func(ctx context.Context, e *event.TicketIssued) error {
		fileID, err := g.GenerateTicket(ctx, PrintableTicket{
			TicketID:     e.TicketID,
			TicketNumber: e.TicketNumber,
			EventID:      e.EventID,
			Price:        e.Price,
			QRPayload:    e.QRPayload,
		})
		if err != nil {
			return fmt.Errorf("generating ticket: %w", err)
		}

		ticketPrinted := event.NewTicketPrinted(e.Header.IdempotencyKey, e.TicketID, fileID)

		if err := p.Publish(ctx, ticketPrinted); err != nil {
			return fmt.Errorf("publishing ticket printed event: %w", err)
		}

		return nil
	}
}

func handleAppendIssuedToTracker(s SpreadsheetAppender) func(ctx context.Context, e *event.TicketIssued) error {
	return func(ctx context.Context, e *event.TicketIssued) error {
		row := []string{e.TicketNumber, e.EventID, e.BuyerRef, e.Price.Amount.StringFixed(2), e.Price.Currency}
		if err := s.AppendRow(ctx, sheetTicketsIssued, row); err != nil {
			return fmt.Errorf("failed to append row to tracker: %w", err)
		}

		return nil
	}
}

func handleAppendCheckInToTracker(s SpreadsheetAppender) func(ctx context.Context, e *event.TicketCheckedIn) error {
	return func(ctx context.Context, e *event.TicketCheckedIn) error {
		row := []string{e.TicketNumber, e.EventID, e.CheckedInAt.UTC().Format("2006-01-02T15:04:05Z")}
		if err := s.AppendRow(ctx, sheetCheckIns, row); err != nil {
			return fmt.Errorf("failed to append row to tracker: %w", err)
		}

		return nil
	}
}

func handleAppendCancelledToTracker(s SpreadsheetAppender) func(ctx context.Context, e *event.TicketCancelled) error {
	return func(ctx context.Context, e *event.TicketCancelled) error {
		row := []string{e.TicketNumber, e.EventID, e.Price.Amount.StringFixed(2), e.Price.Currency, e.Reason}
		if err := s.AppendRow(ctx, sheetTicketsCancelled, row); err != nil {
			return fmt.Errorf("failed to append row to tracker: %w", err)
		}

		return nil
	}
}

func handleRefundPayment(p PaymentRefunder) func(ctx context.Context, cmd *command.RefundPayment) error {
	return func(ctx context.Context, cmd *command.RefundPayment) error {
		if err := p.RefundPayment(ctx, cmd.Header.IdempotencyKey, cmd.PaymentReference, cmd.Reason); err != nil {
			return fmt.Errorf("refunding payment: %w", err)
		}

		return nil
	}
}
