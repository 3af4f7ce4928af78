package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
)

// Metrics records business counters of the ledger. The telemetry package
// provides the OpenTelemetry implementation.
type Metrics interface {
	RecordPosting(ctx context.Context, sourceType string)
	RecordRelease(ctx context.Context, triggeredBy string, outcome shared.OutcomeKind)
	RecordInboxOutcome(ctx context.Context, inbox string, outcome shared.OutcomeKind)
	RecordReconciliation(ctx context.Context, job string, processed, recovered, failed, skipped int, took time.Duration)
}

// NoopMetrics discards everything
type NoopMetrics struct{}

func (NoopMetrics) RecordPosting(context.Context, string) {}
func (NoopMetrics) RecordRelease(context.Context, string, shared.OutcomeKind) {}
func (NoopMetrics) RecordInboxOutcome(context.Context, string, shared.OutcomeKind) {}
func (NoopMetrics) RecordReconciliation(context.Context, string, int, int, int, int, time.Duration) {}

// OrNoop returns m, or NoopMetrics when m is nil
func OrNoop(m Metrics) Metrics {
	if m == nil {
		return NoopMetrics{}
	}
	return m
}
