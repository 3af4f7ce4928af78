package persistence

import (
	"testing"

	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDatabase(t *testing.T) {
	db, err := NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	t.Run("creates every table", func(t *testing.T) {
		for _, m := range models.All() {
			assert.True(t, db.DB.Migrator().HasTable(m), "missing table for %T", m)
		}
	})

	t.Run("ping and stats", func(t *testing.T) {
		require.NoError(t, db.Ping())
		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MaxOpenConnections)
		assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
	})

	t.Run("partial unique index on active journal source", func(t *testing.T) {
		assert.True(t, db.DB.Migrator().HasIndex(&models.JournalEntryModel{}, "idx_journal_active_source"))
	})
}

func TestAutoMigrate_Idempotent(t *testing.T) {
	db, err := NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NoError(t, AutoMigrate(db.DB))
}
