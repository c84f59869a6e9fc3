package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const correlationIDHeader = "Correlation-ID"

// New builds the gateway clients used by the downstream message handlers.
// Every call carries the correlation id and trace context of the message
// being handled.
func New(gatewayAddress string) (*clients.Clients, error) {
	c, err := clients.NewClients(gatewayAddress, editGatewayRequest)
	if err != nil {
		return nil, fmt.Errorf("creating gateway client: %w", err)
	}

	return c, nil
}

func editGatewayRequest(ctx context.Context, req *http.Request) error {
	if correlationID := log.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set(correlationIDHeader, correlationID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return nil
}
