package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/payments"
)

type PaymentsClient struct {
	clients *clients.Clients
}

func NewPaymentsClient(clients *clients.Clients) PaymentsClient {
	return PaymentsClient{
		clients: clients,
	}
}

func (c PaymentsClient) RefundPayment(ctx context.Context, idempotencyKey, paymentReference, reason string) error {
	res, err := c.clients.Payments.PutRefundsWithResponse(ctx, payments.PaymentRefundRequest{
		PaymentReference: paymentReference,
		Reason:           reason,
		DeduplicationId:  &idempotencyKey,
	})
	if err != nil {
		return fmt.Errorf("put refund request for payment %s: %w", paymentReference, err)
	}

	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", res.StatusCode())
	}

	return nil
}
