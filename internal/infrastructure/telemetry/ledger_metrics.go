package telemetry

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records the business counters of the ledger on an OTel meter.
// It satisfies the application ledger.Metrics interface.
type LedgerMetrics struct {
	postings      *Counter
	releases      *Counter
	inboxEvents   *Counter
	reconciled    *Counter
	reconcileRuns *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	var err error
	if m.postings, err = NewCounter(meter, "ledger_journal_postings_total",
		"Journal entries posted", "{entries}"); err != nil {
		return nil, err
	}
	if m.releases, err = NewCounter(meter, "ledger_payout_releases_total",
		"Escrow release attempts by trigger and outcome", "{releases}"); err != nil {
		return nil, err
	}
	if m.inboxEvents, err = NewCounter(meter, "ledger_inbox_events_total",
		"Inbound provider events by inbox and outcome", "{events}"); err != nil {
		return nil, err
	}
	if m.reconciled, err = NewCounter(meter, "ledger_reconciliation_items_total",
		"Items handled by reconciliation jobs", "{items}"); err != nil {
		return nil, err
	}
	if m.reconcileRuns, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_reconciliation_run_duration",
		Description: "Duration of one reconciliation run",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LedgerMetrics) RecordPosting(ctx context.Context, sourceType string) {
	m.postings.Inc(ctx, AttrSourceType.String(sourceType))
}

func (m *LedgerMetrics) RecordRelease(ctx context.Context, triggeredBy string, outcome shared.OutcomeKind) {
	m.releases.Inc(ctx, AttrTriggeredBy.String(triggeredBy), AttrOutcome.String(string(outcome)))
}

func (m *LedgerMetrics) RecordInboxOutcome(ctx context.Context, inbox string, outcome shared.OutcomeKind) {
	m.inboxEvents.Inc(ctx, AttrInbox.String(inbox), AttrOutcome.String(string(outcome)))
}

func (m *LedgerMetrics) RecordReconciliation(ctx context.Context, job string, processed, recovered, failed, skipped int, took time.Duration) {
	jobAttr := AttrJob.String(job)
	for result, n := range map[string]int{
		"processed": processed,
		"recovered": recovered,
		"failed":    failed,
		"skipped":   skipped,
	} {
		m.reconciled.Add(ctx, int64(n), jobAttr, AttrResult.String(result))
	}
	m.reconcileRuns.RecordDuration(ctx, took, jobAttr)
}

// MetricsError is returned for invalid metric wiring.
type MetricsError struct {
	Message string
}

func (e *MetricsError) Error() string {
	return e.Message
}

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = &MetricsError{Message: "meter cannot be nil"}
