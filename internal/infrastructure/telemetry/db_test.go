package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestInstrumentDB_RecordsSpans(t *testing.T) {
	sr := setupTestTracer(t)
	db := openSQLite(t)

	err := telemetry.InstrumentDB(db, config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}, "ledger", zap.NewNop())
	require.NoError(t, err)

	var one int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	assert.NotEmpty(t, sr.Ended(), "otelgorm should end a span per statement")
}

func TestInstrumentDB_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	db := openSQLite(t)

	require.NoError(t, telemetry.InstrumentDB(db, config.TelemetryConfig{Enabled: true}, "ledger", zap.NewNop()))

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Empty(t, sr.Ended())
}

func TestRegisterPoolMetrics(t *testing.T) {
	reader, mp := newTestMeter(t)
	db := openSQLite(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	reg, err := telemetry.RegisterPoolMetrics(mp.Meter("test"), sqlDB)
	require.NoError(t, err)
	defer func() { _ = reg.Unregister() }()

	got := collect(t, reader)
	gauge, ok := got["ledger_db_pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)

	var max int64
	for _, dp := range gauge.DataPoints {
		if v, ok := dp.Attributes.Value(telemetry.AttrDBState); ok && v.AsString() == "max" {
			max = dp.Value
		}
	}
	assert.Equal(t, int64(1), max)
}
