package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[string]any {
	m := make(map[string]any)
	for _, attr := range span.Attributes() {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	companyID := uuid.New()
	_, span := telemetry.StartServiceSpan(context.Background(), "escrow", "release",
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, companyID),
		telemetry.WithAttribute(telemetry.SpanAttrTriggeredBy, "delivery"),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "escrow.release", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())

	attrs := attrMap(spans[0])
	assert.Equal(t, companyID.String(), attrs["company_id"])
	assert.Equal(t, "delivery", attrs["triggered_by"])
}

func TestStartSpan_WithSpanKind(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "einvoice.fetch", telemetry.WithSpanKind(trace.SpanKindClient))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
}

func TestSetAttributes_SkipsMalformedPairs(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.operation")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, "entry-1",
		42, "non-string key",
		"count", 3,
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Equal(t, "entry-1", attrs["entry_id"])
	assert.Equal(t, int64(3), attrs["count"])
	assert.Len(t, attrs, 2)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "shipping.ingest")
	telemetry.AddEvent(span, "order_delivered", telemetry.SpanAttrTrackingNumber, "TRK-1")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "order_delivered", events[0].Name)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.operation")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "boom", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestRecordOutcome(t *testing.T) {
	tests := []struct {
		name      string
		outcome   shared.Outcome
		wantError bool
	}{
		{"processed", shared.Processed(), false},
		{"duplicate", shared.AlreadyProcessed(), false},
		{"validation", shared.OutcomeFromError(shared.ErrInvalidInput), false},
		{"transient", shared.OutcomeFromError(errors.New("connection reset")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			_, span := telemetry.StartSpan(context.Background(), "test.operation")
			telemetry.RecordOutcome(span, tt.outcome)
			span.End()

			got := sr.Ended()[0]
			assert.Equal(t, string(tt.outcome.Kind), attrMap(got)["outcome"])
			if tt.wantError {
				assert.Equal(t, codes.Error, got.Status().Code)
			} else {
				assert.NotEqual(t, codes.Error, got.Status().Code)
			}
		})
	}
}

func TestGetTraceID(t *testing.T) {
	setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "test.operation")
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), telemetry.GetTraceID(ctx))
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.AddEvent(nil, "event")
		telemetry.RecordError(nil, errors.New("boom"))
		telemetry.RecordOutcome(nil, shared.Processed())
	})
}
