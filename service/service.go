package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boxoffice/catalog"
	"boxoffice/checkin"
	"boxoffice/checkout"
	"boxoffice/clients"
	"boxoffice/clock"
	"boxoffice/config"
	"boxoffice/http"
	"boxoffice/inventory"
	"boxoffice/issuer"
	"boxoffice/message"
	"boxoffice/postgres"
	"boxoffice/qr"
	"boxoffice/ratelimit"

	commonClients "github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Deps struct {
	Config   config.Config
	Logger   watermill.LoggerAdapter
	DB       *sqlx.DB
	Redis    *redis.Client
	Gateway  *commonClients.Clients
	Payments checkout.PaymentGateway
	Codec    *qr.Codec
	Clock    clock.Clock
}

type Service struct {
	httpAddr   string
	msgRouter  *message.Router
	forwarder  *message.Forwarder
	httpRouter *echo.Echo
	sweeper    *checkout.Sweeper
}

func New(deps Deps) (*Service, error) {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}

	db := postgres.NewDB(deps.DB)
	ticketTypes := postgres.NewTicketTypeRepo(db)
	reservations := postgres.NewReservationRepo(db)
	orders := postgres.NewOrderRepo(db)
	tickets := postgres.NewTicketRepo(db)
	outbox := postgres.NewOutbox(deps.Logger)

	inv := inventory.NewManager(db, ticketTypes, reservations, deps.Clock, inventory.Config{
		TTL:            deps.Config.ReservationTTL,
		SweepBatchSize: deps.Config.SweepBatchSize,
	})

	orchestrator := checkout.NewOrchestrator(checkout.Deps{
		Tx:        db,
		Inventory: inv,
		Orders:    orders,
		Tickets:   tickets,
		Issuer:    issuer.New(tickets, deps.Codec, outbox, deps.Clock),
		Payments:  deps.Payments,
		Outbox:    outbox,
		Clock:     deps.Clock,
		BatchSize: deps.Config.SweepBatchSize,
	})

	verifier := checkin.NewVerifier(db, tickets, outbox, deps.Clock)

	// Forwarder first: it creates the outbox table the publishers write to.
	forwarder, err := message.NewForwarder(deps.DB, deps.Redis, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating forwarder: %w", err)
	}

	redisPublisher, err := message.NewRedisPublisher(deps.Redis, deps.Logger)
	if err != nil {
		return nil, err
	}

	eventBus, err := message.NewEventBus(redisPublisher, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}

	msgRouter, err := message.NewRouter(message.RouterDeps{
		Logger:              deps.Logger,
		Publisher:           eventBus,
		ReceiptIssuer:       clients.NewReceiptsClient(deps.Gateway),
		RedisClient:         deps.Redis,
		SpreadsheetAppender: clients.NewSpreadsheetsClient(deps.Gateway),
		TicketGenerator:     clients.NewFilesClient(deps.Gateway),
		PaymentRefunder:     clients.NewPaymentsClient(deps.Gateway),
	})
	if err != nil {
		return nil, fmt.Errorf("creating message router: %w", err)
	}

	scanStore := ratelimit.NewRedisStore(deps.Redis, "check-in", deps.Config.ScanRateLimit, deps.Config.ScanRateWindow)

	httpRouter := http.NewRouter(http.RouterDeps{
		Catalog:       catalog.New(db, ticketTypes, deps.Clock),
		Checkout:      orchestrator,
		CheckIn:       verifier,
		Normalizer:    deps.Codec,
		WebhookSecret: deps.Config.PaymentWebhookSecret,
		ScanLimiter:   ratelimit.Middleware(scanStore),
	})

	return &Service{
		httpAddr:   deps.Config.HTTPAddr,
		msgRouter:  msgRouter,
		forwarder:  forwarder,
		httpRouter: httpRouter,
		sweeper:    checkout.NewSweeper(orchestrator, deps.Config.SweepInterval),
	}, nil
}

func (s Service) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.msgRouter.Run(runCtx); err != nil {
			return fmt.Errorf("running messaging router: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := s.forwarder.Run(runCtx); err != nil {
			return fmt.Errorf("running outbox forwarder: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return s.sweeper.Run(runCtx)
	})

	g.Go(func() error {
		// Wait for message router
		<-s.msgRouter.Running()

		logrus.WithField("addr", s.httpAddr).Info("Starting HTTP server...")
		err := s.httpRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
