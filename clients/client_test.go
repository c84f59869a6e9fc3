package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestEditGatewayRequest(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	ctx := log.ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	req := httptest.NewRequest(http.MethodPut, "/receipts", nil)
	require.NoError(t, editGatewayRequest(ctx, req))

	assert.Equal(t, "corr-1", req.Header.Get(correlationIDHeader))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", req.Header.Get("traceparent"))
}
