package clients

import (
	"context"
	"fmt"
	"net/http"

	"boxoffice/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/receipts"
)

type ReceiptsClient struct {
	clients *clients.Clients
}

func NewReceiptsClient(clients *clients.Clients) ReceiptsClient {
	return ReceiptsClient{
		clients: clients,
	}
}

func (c ReceiptsClient) IssueReceipt(ctx context.Context, idempotencyKey, ticketID string, price entity.Money) error {
	body := receipts.CreateReceipt{
		IdempotencyKey: &idempotencyKey,
		TicketId:       ticketID,
		Price: receipts.Money{
			MoneyAmount:   price.Amount.StringFixed(2),
			MoneyCurrency: price.Currency,
		},
	}

	res, err := c.clients.Receipts.PutReceiptsWithResponse(ctx, body)
	if err != nil {
		return fmt.Errorf("put receipt request: %w", err)
	}

	// 200 means the receipt already existed for this idempotency key.
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %v", res.StatusCode())
	}

	return nil
}

func (c ReceiptsClient) VoidReceipt(ctx context.Context, idempotencyKey, ticketID, reason string) error {
	res, err := c.clients.Receipts.PutVoidReceiptWithResponse(ctx, receipts.VoidReceiptRequest{
		IdempotentId: &idempotencyKey,
		Reason:       reason,
		TicketId:     ticketID,
	})
	if err != nil {
		return fmt.Errorf("put void receipt request: %w", err)
	}

	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status code: %v", res.StatusCode())
	}

	return nil
}
