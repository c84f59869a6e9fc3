package message

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Logger              watermill.LoggerAdapter
	Publisher           Publisher
	ReceiptIssuer       ReceiptIssuer
	RedisClient         *redis.Client
	SpreadsheetAppender SpreadsheetAppender
	TicketGenerator     TicketGenerator
	PaymentRefunder     PaymentRefunder
}

type Router struct {
	*message.Router
}

func NewRouter(deps RouterDeps) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	addMiddlewares(router, deps.Logger)

	ep, err := cqrs.NewEventProcessorWithConfig(router, newEventProcessorConfig(deps.RedisClient, deps.Logger))
	if err != nil {
		return nil, fmt.Errorf("creating event processor: %w", err)
	}

	eventHandlers := []cqrs.EventHandler{
		cqrs.NewEventHandler("issue-receipt", handleIssueReceipt(deps.ReceiptIssuer)),
		cqrs.NewEventHandler("void-receipt", handleVoidReceipt(deps.ReceiptIssuer)),
		cqrs.NewEventHandler("print-ticket", handlePrintTicket(deps.TicketGenerator, deps.Publisher)),
		cqrs.NewEventHandler("append-to-tracker-issued", handleAppendIssuedToTracker(deps.SpreadsheetAppender)),
		cqrs.NewEventHandler("append-to-tracker-check-ins", handleAppendCheckInToTracker(deps.SpreadsheetAppender)),
		cqrs.NewEventHandler("append-to-tracker-cancelled", handleAppendCancelledToTracker(deps.SpreadsheetAppender)),
	}

	if err := ep.AddHandlers(eventHandlers...); err != nil {
		return nil, fmt.Errorf("adding event handlers: %w", err)
	}

	cp, err := cqrs.NewCommandProcessorWithConfig(router, newCommandProcessorConfig(deps.RedisClient, deps.Logger))
	if err != nil {
		return nil, fmt.Errorf("creating command processor: %w", err)
	}

	if err := cp.AddHandlers(
		cqrs.NewCommandHandler("refund-payment", handleRefundPayment(deps.PaymentRefunder)),
	); err != nil {
		return nil, fmt.Errorf("adding command handlers: %w", err)
	}

	return &Router{router}, nil
}
