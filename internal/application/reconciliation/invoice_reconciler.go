// Package reconciliation settles local PENDING state against external systems.
// Workers never hold a transaction across a remote call.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Job names used in logs and metrics
const (
	JobInvoices = "invoice_reconciliation"
	JobPayouts  = "payout_reconciliation"
)

// ErrNoProvider is returned by RunOnce when no e-invoice provider is wired
var ErrNoProvider = errors.New("reconciliation: e-invoice provider not configured")

// Result counts what one run did with the rows it selected
type Result struct {
	Processed int `json:"processed"`
	Recovered int `json:"recovered"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// InvoiceReconcilerConfig tunes the invoice reconciliation run
type InvoiceReconcilerConfig struct {
	WorkerID        string
	CoolDown        time.Duration
	Staleness       time.Duration
	BatchSize       int
	ClaimTTL        time.Duration
	RemoteTimeout   time.Duration
	AmountTolerance decimal.Decimal
}

// DefaultInvoiceReconcilerConfig returns the production defaults
func DefaultInvoiceReconcilerConfig() InvoiceReconcilerConfig {
	return InvoiceReconcilerConfig{
		WorkerID:        "reconciler-" + uuid.NewString()[:8],
		CoolDown:        5 * time.Minute,
		Staleness:       24 * time.Hour,
		BatchSize:       50,
		ClaimTTL:        10 * time.Minute,
		RemoteTimeout:   30 * time.Second,
		AmountTolerance: reconciliation.DefaultAmountTolerance,
	}
}

// InvoiceReconciler recovers e-invoice submissions whose response was lost.
// It looks the invoice up on the provider and accepts it only when both the
// amount and the receiver tax id match.
type InvoiceReconciler struct {
	scope    ledger.TransactionScope
	provider reconciliation.EInvoiceProvider
	matcher  reconciliation.Matcher
	cfg      InvoiceReconcilerConfig
	metrics  ledger.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewInvoiceReconciler creates an InvoiceReconciler
func NewInvoiceReconciler(
	scope ledger.TransactionScope,
	provider reconciliation.EInvoiceProvider,
	cfg InvoiceReconcilerConfig,
	metrics ledger.Metrics,
	logger *zap.Logger,
) *InvoiceReconciler {
	def := DefaultInvoiceReconcilerConfig()
	if cfg.WorkerID == "" {
		cfg.WorkerID = def.WorkerID
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = def.ClaimTTL
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = def.RemoteTimeout
	}
	if cfg.Staleness <= 0 {
		cfg.Staleness = def.Staleness
	}
	return &InvoiceReconciler{
		scope:    scope,
		provider: provider,
		matcher:  reconciliation.NewMatcher(cfg.AmountTolerance),
		cfg:      cfg,
		metrics:  ledger.OrNoop(metrics),
		logger:   logger,
		now:      ledger.UTCNow,
	}
}

// Name identifies the job to the scheduler
func (r *InvoiceReconciler) Name() string {
	return JobInvoices
}

// Run adapts RunOnce to the scheduler's job signature
func (r *InvoiceReconciler) Run(ctx context.Context) error {
	_, err := r.RunOnce(ctx)
	return err
}

// RunOnce reconciles one batch of stale PENDING invoice requests, oldest first.
// A failing row is logged and counted; it never aborts the batch.
func (r *InvoiceReconciler) RunOnce(ctx context.Context) (Result, error) {
	if r.provider == nil {
		return Result{}, ErrNoProvider
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "invoices")
	defer span.End()

	started := r.now()
	window := reconciliation.Window{CoolDown: r.cfg.CoolDown, Staleness: r.cfg.Staleness}
	oldest, newest := window.Bounds(started)

	var rows []*reconciliation.ExternalRequest
	if err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		rows, err = repos.ExternalRequestRepo().FindStalePending(ctx,
			reconciliation.ProviderNilvera, reconciliation.EntityTypeSalesInvoice, oldest, newest, r.cfg.BatchSize)
		return err
	}); err != nil {
		telemetry.RecordError(span, err)
		return Result{}, fmt.Errorf("failed to select pending requests: %w", err)
	}

	var res Result
	for _, row := range rows {
		res.Processed++
		switch r.reconcileRow(ctx, row) {
		case rowRecovered:
			res.Recovered++
		case rowFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}

	took := r.now().Sub(started)
	r.metrics.RecordReconciliation(ctx, JobInvoices, res.Processed, res.Recovered, res.Failed, res.Skipped, took)
	telemetry.SetAttributes(span,
		"processed", res.Processed,
		"recovered", res.Recovered,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)
	if res.Processed > 0 {
		r.logger.Info("invoice reconciliation finished",
			zap.String("worker", r.cfg.WorkerID),
			zap.Int("processed", res.Processed),
			zap.Int("recovered", res.Recovered),
			zap.Int("failed", res.Failed),
			zap.Int("skipped", res.Skipped),
			zap.Duration("took", took),
		)
	}
	return res, nil
}

type rowResult int

const (
	rowSkipped rowResult = iota
	rowRecovered
	rowFailed
)

func (r *InvoiceReconciler) reconcileRow(ctx context.Context, row *reconciliation.ExternalRequest) rowResult {
	log := r.logger.With(
		zap.String("request_id", row.ID.String()),
		zap.String("invoice_id", row.EntityID.String()),
	)

	var claimed bool
	if err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		claimed, err = repos.ExternalRequestRepo().Claim(ctx, row.ID, r.cfg.WorkerID, r.now(), r.cfg.ClaimTTL)
		return err
	}); err != nil {
		log.Error("failed to claim request", zap.Error(err))
		return rowFailed
	}
	if !claimed {
		log.Debug("request claimed by another worker")
		return rowSkipped
	}

	var invoice *reconciliation.SalesInvoice
	err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByID(ctx, row.EntityID)
		return err
	})
	if errors.Is(err, shared.ErrNotFound) {
		log.Warn("local invoice missing, failing request")
		r.fail(ctx, row.ID, "local invoice not found")
		return rowFailed
	}
	if err != nil {
		log.Error("failed to load local invoice", zap.Error(err))
		r.release(ctx, row.ID, err.Error())
		return rowFailed
	}

	candidates, err := r.fetchRemote(ctx, row.CreatedAt.AddDate(0, 0, -1), r.now())
	if err != nil {
		log.Warn("e-invoice provider unavailable, request stays pending", zap.Error(err))
		r.release(ctx, row.ID, err.Error())
		return rowFailed
	}

	candidates, err = r.unclaimed(ctx, invoice.ID, candidates)
	if err != nil {
		log.Error("failed to check remote invoices already in use", zap.Error(err))
		r.release(ctx, row.ID, err.Error())
		return rowFailed
	}

	match, ok := r.matcher.FindMatch(invoice, candidates)
	if !ok {
		log.Info("no matching remote invoice",
			zap.Int("candidates", len(candidates)),
			zap.String("amount", invoice.TotalAmount.String()),
		)
		r.release(ctx, row.ID, "no matching remote invoice")
		return rowSkipped
	}

	response := match.Raw
	if len(response) == 0 {
		response, _ = json.Marshal(match)
	}
	var won bool
	err = r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		won, err = repos.ExternalRequestRepo().MarkSuccess(ctx, row.ID, r.cfg.WorkerID, response)
		if err != nil || !won {
			return err
		}
		return repos.InvoiceRepo().MarkFormallySent(ctx, invoice.ID, match.UUID)
	})
	if err != nil {
		log.Error("failed to record recovered invoice", zap.Error(err))
		r.release(ctx, row.ID, err.Error())
		return rowFailed
	}
	if !won {
		log.Warn("claim expired before completion")
		return rowSkipped
	}

	log.Info("invoice recovered from provider",
		zap.String("formal_uuid", match.UUID),
		zap.String("invoice_type", string(match.Type)),
	)
	return rowRecovered
}

// unclaimed removes remote invoices another local invoice already holds
func (r *InvoiceReconciler) unclaimed(ctx context.Context, invoiceID uuid.UUID, candidates []reconciliation.RemoteInvoice) ([]reconciliation.RemoteInvoice, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	uuids := make([]string, len(candidates))
	for i, c := range candidates {
		uuids[i] = c.UUID
	}
	var inUse map[string]struct{}
	err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		inUse, err = repos.InvoiceRepo().FormalUUIDsInUse(ctx, uuids, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reconciliation.Unclaimed(candidates, inUse), nil
}

// fetchRemote lists both registers within one bounded timeout
func (r *InvoiceReconciler) fetchRemote(ctx context.Context, start, end time.Time) ([]reconciliation.RemoteInvoice, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RemoteTimeout)
	defer cancel()

	var all []reconciliation.RemoteInvoice
	for _, typ := range reconciliation.AllInvoiceTypes() {
		list, err := r.provider.ListInvoices(ctx, start, end, typ)
		if err != nil {
			return nil, fmt.Errorf("list %s invoices: %w", typ, err)
		}
		all = append(all, list...)
	}
	return all, nil
}

func (r *InvoiceReconciler) release(ctx context.Context, id uuid.UUID, reason string) {
	err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		return repos.ExternalRequestRepo().ReleaseClaim(ctx, id, r.cfg.WorkerID, reason)
	})
	if err != nil {
		r.logger.Error("failed to release claim", zap.String("request_id", id.String()), zap.Error(err))
	}
}

func (r *InvoiceReconciler) fail(ctx context.Context, id uuid.UUID, reason string) {
	err := r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		_, err := repos.ExternalRequestRepo().MarkFailed(ctx, id, reason)
		return err
	})
	if err != nil {
		r.logger.Error("failed to mark request failed", zap.String("request_id", id.String()), zap.Error(err))
	}
}

// MarkFailed is the operator escalation for a request the worker gave up on
func (r *InvoiceReconciler) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		if _, err := repos.ExternalRequestRepo().FindByID(ctx, id); err != nil {
			return fmt.Errorf("external request %s: %w", id, err)
		}
		ok, err := repos.ExternalRequestRepo().MarkFailed(ctx, id, reason)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: request is not pending", shared.ErrInvalidState)
		}
		r.logger.Info("external request failed by operator",
			zap.String("request_id", id.String()),
			zap.String("reason", reason),
		)
		return nil
	})
}
