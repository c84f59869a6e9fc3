package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"

	"boxoffice/clients"
	"boxoffice/config"
	"boxoffice/observability"
	"boxoffice/postgres"
	"boxoffice/qr"
	"boxoffice/service"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func main() {
	cfg := config.Load()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Init(level)
	logger := log.NewWatermill(logrus.NewEntry(logrus.StandardLogger()))

	if err := run(cfg, logger); err != nil {
		logger.Error("failed to run", err, nil)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger watermill.LoggerAdapter) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tp, err := observability.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("configuring tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", err, nil)
		}
	}()

	gateway, err := clients.New(cfg.GatewayAddr)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis connection", err, nil)
		}
	}()

	traced, err := otelsql.Open("postgres", cfg.PostgresURL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	dbConn := sqlx.NewDb(traced, "postgres")
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close db connection", err, nil)
		}
	}()

	if err := postgres.InitialiseDB(ctx, dbConn); err != nil {
		return fmt.Errorf("initialising database: %w", err)
	}

	codec, err := newCodec(cfg.QRSigningKey)
	if err != nil {
		return err
	}

	svc, err := service.New(service.Deps{
		Config:  cfg,
		Logger:  logger,
		DB:      dbConn,
		Redis:   rdb,
		Gateway: gateway,
		Payments: clients.NewPaystackClient(clients.PaystackConfig{
			BaseURL:     cfg.PaymentAPIURL,
			SecretKey:   cfg.PaymentSecretKey,
			CallbackURL: cfg.PaymentCallbackURL,
		}),
		Codec: codec,
	})
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	return svc.Run(ctx)
}

// newCodec falls back to a random key, which invalidates every issued QR code
// on restart.
func newCodec(key string) (*qr.Codec, error) {
	raw := []byte(key)
	if len(raw) == 0 {
		logrus.Warn("QR_SIGNING_KEY is not set, using an ephemeral key")
		raw = make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("generating qr signing key: %w", err)
		}
	}

	codec, err := qr.NewCodec(raw)
	if err != nil {
		return nil, fmt.Errorf("creating qr codec: %w", err)
	}

	return codec, nil
}
