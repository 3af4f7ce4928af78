package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// Correlation keys carried on request and job contexts
const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
	CompanyIDKey contextKey = "company_id"
	WorkerKey    contextKey = "worker"
)

// WithContext attaches log to ctx
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, log)
}

// FromContext returns the attached logger or a no-op one
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

func tag(ctx context.Context, log *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	log = log.With(zap.String(string(key), value))
	return WithContext(ctx, log), log
}

// WithRequestID tags an HTTP request
func WithRequestID(ctx context.Context, log *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return tag(ctx, log, RequestIDKey, requestID)
}

// WithCompanyID tags the company a request acts for
func WithCompanyID(ctx context.Context, log *zap.Logger, companyID string) (context.Context, *zap.Logger) {
	return tag(ctx, log, CompanyIDKey, companyID)
}

// WithWorker tags one run of a scheduled job
func WithWorker(ctx context.Context, log *zap.Logger, worker string) (context.Context, *zap.Logger) {
	return tag(ctx, log, WorkerKey, worker)
}

func value(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

func GetRequestID(ctx context.Context) string { return value(ctx, RequestIDKey) }
func GetCompanyID(ctx context.Context) string { return value(ctx, CompanyIDKey) }
func GetWorker(ctx context.Context) string    { return value(ctx, WorkerKey) }

// GetTraceID returns the active span's trace id, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// For returns base with the correlation fields found on ctx (request,
// company, worker and trace). Services that hold their own logger use it so
// their records join the request or job that caused them.
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = FromContext(ctx)
	}
	fields := correlationFields(ctx)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, zap.String("span_id", sc.SpanID().String()))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
