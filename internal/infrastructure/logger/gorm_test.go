package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func observedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestGormLogger_Trace(t *testing.T) {
	insertLedger := func() (string, int64) {
		return `INSERT INTO "seller_balance_ledger" ("idempotency_key") VALUES (?) ON CONFLICT DO NOTHING`, 1
	}

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{name: "statement at debug", level: gormlogger.Info, begin: time.Now(), wantMsg: "sql query", wantLevel: zapcore.DebugLevel},
		{name: "failure at error", level: gormlogger.Error, begin: time.Now(), err: errors.New("deadlock detected"), wantMsg: "sql error", wantLevel: zapcore.ErrorLevel},
		{name: "replayed idempotency key", level: gormlogger.Info, begin: time.Now(), err: gorm.ErrDuplicatedKey, wantMsg: "sql duplicate key", wantLevel: zapcore.DebugLevel},
		{name: "slow release scan", level: gormlogger.Warn, opts: []GormLoggerOption{WithSlowThreshold(time.Millisecond)}, begin: time.Now().Add(-time.Second), wantMsg: "slow sql >= 1ms", wantLevel: zapcore.WarnLevel},
		{name: "not found is quiet", level: gormlogger.Info, begin: time.Now(), err: gormlogger.ErrRecordNotFound},
		{name: "silent", level: gormlogger.Silent, begin: time.Now(), err: errors.New("ignored")},
		{name: "slow logging disabled", level: gormlogger.Warn, opts: []GormLoggerOption{WithSlowThreshold(0)}, begin: time.Now().Add(-time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := observedGorm(tt.level, tt.opts...)
			gl.Trace(context.Background(), tt.begin, insertLedger, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "gorm", entry.LoggerName)
			assert.EqualValues(t, 1, entry.ContextMap()["rows"])
		})
	}
}

func TestGormLogger_TraceCarriesCorrelation(t *testing.T) {
	gl, recorded := observedGorm(gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	ctx = context.WithValue(ctx, CompanyIDKey, "company-1")
	ctx = context.WithValue(ctx, WorkerKey, "payout_reconciliation")
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", -1 }, nil)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "company-1", fields["company_id"])
	assert.Equal(t, "payout_reconciliation", fields["worker"])
	assert.NotContains(t, fields, "rows", "unknown row counts are omitted")
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl, recorded := observedGorm(gormlogger.Info)
	quiet := gl.LogMode(gormlogger.Silent)

	quiet.Info(context.Background(), "migrated %d tables", 9)
	assert.Zero(t, recorded.Len())

	gl.Warn(context.Background(), "pool at %d%%", 90)
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "pool at 90%", recorded.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"SILENT":  gormlogger.Silent,
		"debug":   gormlogger.Info,
		"info":    gormlogger.Info,
		"warning": gormlogger.Warn,
		"error":   gormlogger.Error,
		"fatal":   gormlogger.Error,
		"":        gormlogger.Info,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapGormLogLevel(in), "level %q", in)
	}
}
