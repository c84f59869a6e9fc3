package http

import (
	"context"
	"net/http"

	"boxoffice/catalog"
	"boxoffice/checkin"
	"boxoffice/checkout"
	"boxoffice/entity"
	"boxoffice/observability"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

var ErrServerClosed = http.ErrServerClosed

type Catalog interface {
	Create(ctx context.Context, eventID string, def catalog.Definition) (entity.TicketType, error)
	Update(ctx context.Context, id string, def catalog.Definition) (entity.TicketType, error)
	ListByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error)
	GetAvailability(ctx context.Context, id string) (entity.Availability, error)
}

type Checkout interface {
	StartCheckout(ctx context.Context, req checkout.Request) (checkout.Result, error)
	Confirm(ctx context.Context, c checkout.Confirmation) (checkout.ConfirmResult, error)
	GetOrder(ctx context.Context, id string) (checkout.OrderDetails, error)
}

type CheckIn interface {
	VerifyAndCheckIn(ctx context.Context, eventID, ticketNumber string) (checkin.Result, error)
	Cancel(ctx context.Context, ticketID, reason string) (entity.Ticket, error)
}

type TicketNormalizer interface {
	Normalize(raw string) (string, error)
}

type RouterDeps struct {
	Catalog       Catalog
	Checkout      Checkout
	CheckIn       CheckIn
	Normalizer    TicketNormalizer
	WebhookSecret string
	// ScanLimiter guards the check-in route. Nil disables it.
	ScanLimiter echo.MiddlewareFunc
}

func NewRouter(deps RouterDeps) *echo.Echo {
	server := commonHTTP.NewEcho()
	server.HTTPErrorHandler = handleError
	server.Validator = newRequestValidator()
	server.Use(otelecho.Middleware(observability.ServiceName))

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h := handler{
		catalog:       deps.Catalog,
		checkout:      deps.Checkout,
		checkIn:       deps.CheckIn,
		normalizer:    deps.Normalizer,
		webhookSecret: deps.WebhookSecret,
	}

	api := server.Group("/api/v1")

	api.POST("/events/:event_id/ticket-types", h.PostTicketType)
	api.GET("/events/:event_id/ticket-types", h.ListTicketTypes)
	api.PUT("/ticket-types/:id", h.PutTicketType)
	api.GET("/ticket-types/:id/availability", h.GetAvailability)

	api.POST("/checkout", h.PostCheckout)
	api.GET("/orders/:id", h.GetOrder)
	api.POST("/payments/webhook", h.PostPaymentWebhook)

	var scanMiddlewares []echo.MiddlewareFunc
	if deps.ScanLimiter != nil {
		scanMiddlewares = append(scanMiddlewares, deps.ScanLimiter)
	}
	api.POST("/events/:event_id/check-ins", h.PostCheckIn, scanMiddlewares...)
	api.POST("/tickets/:id/cancel", h.PostCancelTicket)

	return server
}

type handler struct {
	catalog       Catalog
	checkout      Checkout
	checkIn       CheckIn
	normalizer    TicketNormalizer
	webhookSecret string
}
