package postgres

import (
	"context"
	"errors"

	"boxoffice/message"

	"github.com/ThreeDotsLabs/watermill"
)

var errNoTransaction = errors.New("outbox requires a transaction in context")

// Outbox stores events and commands in the same transaction as the state
// change that produced them. The forwarder moves them to Redis afterwards.
type Outbox struct {
	logger watermill.LoggerAdapter
}

func NewOutbox(logger watermill.LoggerAdapter) Outbox {
	return Outbox{
		logger: logger,
	}
}

func (o Outbox) Publish(ctx context.Context, event any) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errNoTransaction
	}

	return message.PublishInTx(ctx, event, tx.Tx, o.logger)
}

func (o Outbox) Send(ctx context.Context, cmd any) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errNoTransaction
	}

	return message.SendInTx(ctx, cmd, tx.Tx, o.logger)
}
