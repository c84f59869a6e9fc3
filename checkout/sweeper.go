package checkout

import (
	"context"
	"time"

	"boxoffice/metrics"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically fails stale orders and releases expired holds. A sweep
// may run late but never releases a hold before its expiry.
type Sweeper struct {
	orchestrator *Orchestrator
	interval     time.Duration
}

func NewSweeper(orchestrator *Orchestrator, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		orchestrator: orchestrator,
		interval:     interval,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	defer metrics.ObserveSweep(time.Now())

	logger := log.FromContext(ctx)

	expired, err := s.orchestrator.ExpirePending(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to expire pending orders")
	}
	if expired > 0 {
		logger.WithField("orders", expired).Info("Expired pending orders")
	}

	if _, err := s.orchestrator.inventory.SweepExpired(ctx); err != nil {
		logger.WithError(err).Error("Failed to release expired reservations")
	}
}
