package reconciliation

import (
	"context"
	"fmt"
	"time"

	appescrow "github.com/erp/ledger/internal/application/escrow"
	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Releaser releases an order's escrow
type Releaser interface {
	Release(ctx context.Context, orderID uuid.UUID, triggeredBy string) (*appescrow.ReleaseResult, error)
}

// PayoutReconcilerConfig tunes the payout sweep
type PayoutReconcilerConfig struct {
	GracePeriod time.Duration
	BatchSize   int
}

// PayoutReconciler releases escrow for completed orders whose completion event
// did not lead to a release within the grace period.
type PayoutReconciler struct {
	scope    ledger.TransactionScope
	releaser Releaser
	cfg      PayoutReconcilerConfig
	metrics  ledger.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewPayoutReconciler creates a PayoutReconciler
func NewPayoutReconciler(scope ledger.TransactionScope, releaser Releaser, cfg PayoutReconcilerConfig, metrics ledger.Metrics, logger *zap.Logger) *PayoutReconciler {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 30 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &PayoutReconciler{
		scope:    scope,
		releaser: releaser,
		cfg:      cfg,
		metrics:  ledger.OrNoop(metrics),
		logger:   logger,
		now:      ledger.UTCNow,
	}
}

// Name identifies the job to the scheduler
func (r *PayoutReconciler) Name() string {
	return JobPayouts
}

// Run adapts RunOnce to the scheduler's job signature
func (r *PayoutReconciler) Run(ctx context.Context) error {
	_, err := r.RunOnce(ctx)
	return err
}

// RunOnce releases one batch of overdue escrow payouts
func (r *PayoutReconciler) RunOnce(ctx context.Context) (Result, error) {
	started := r.now()
	cutoff := started.Add(-r.cfg.GracePeriod)

	var orderIDs []uuid.UUID
	if err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		orderIDs, err = repos.PaymentRepo().FindReleasableCompletedBefore(ctx, cutoff, r.cfg.BatchSize)
		return err
	}); err != nil {
		return Result{}, fmt.Errorf("failed to select overdue payouts: %w", err)
	}

	var res Result
	for _, id := range orderIDs {
		res.Processed++
		out, err := r.releaser.Release(ctx, id, appescrow.TriggeredByReconciliation)
		if err != nil {
			res.Failed++
			r.logger.Error("overdue payout release failed",
				zap.String("order_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		if out.Outcome.Kind == shared.OutcomeProcessed {
			res.Recovered++
			r.logger.Warn("released overdue escrow payout",
				zap.String("order_id", id.String()),
			)
			continue
		}
		res.Skipped++
	}

	r.metrics.RecordReconciliation(ctx, JobPayouts, res.Processed, res.Recovered, res.Failed, res.Skipped, r.now().Sub(started))
	return res, nil
}
