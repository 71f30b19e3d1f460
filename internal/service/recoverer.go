package service

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"go.uber.org/zap"
)

type RunResumer interface {
	Resume(ctx context.Context, runID string) (*domain.Confirmation, error)
}

// Recoverer re-drives checkout runs that stopped making progress, for example
// after a provider outage or a process restart. A run that fails again keeps
// its RUNNING status and is picked up on a later tick.
type Recoverer struct {
	runs       repository.CheckoutRunRepository
	checkout   RunResumer
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	logger     *zap.Logger
}

func NewRecoverer(runs repository.CheckoutRunRepository, checkout RunResumer, interval, staleAfter time.Duration, logger *zap.Logger) *Recoverer {
	return &Recoverer{
		runs:       runs,
		checkout:   checkout,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  50,
		logger:     logger,
	}
}

func (r *Recoverer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.recoverStuckRuns(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Recoverer) recoverStuckRuns(ctx context.Context) {
	runs, err := r.runs.GetStuckRuns(ctx, time.Now().Add(-r.staleAfter), r.batchSize)
	if err != nil {
		r.logger.Error("failed to get stuck runs", zap.Error(err))
		return
	}

	for _, run := range runs {
		if ctx.Err() != nil {
			return
		}
		r.logger.Info("recovering stuck checkout", zap.String("run_id", run.ID), zap.Int("attempts", run.Attempts))

		confirmation, err := r.checkout.Resume(ctx, run.ID)
		if err != nil {
			r.logger.Warn("checkout recovery failed", zap.String("run_id", run.ID), zap.Error(err))
			continue
		}
		r.logger.Info("checkout recovered", zap.String("run_id", run.ID), zap.String("order_id", confirmation.Order.OrderID))
	}
}
