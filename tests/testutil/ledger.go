package testutil

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// LedgerStore is a throwaway SQLite ledger with the transactional outbox wired in.
type LedgerStore struct {
	DB         *gorm.DB
	Scope      *persistence.GormTransactionScope
	Serializer *event.EventSerializer
	Outbox     *event.GormOutboxRepository
}

// NewLedgerStore opens an in-memory database with every table created
// and the standard chart of accounts seeded.
func NewLedgerStore(t *testing.T) *LedgerStore {
	t.Helper()

	database, err := persistence.NewSQLiteDatabase(":memory:")
	require.NoError(t, err, "Failed to open sqlite ledger")
	t.Cleanup(func() {
		if sqlDB, err := database.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	store := &LedgerStore{
		DB:         database.DB,
		Scope:      persistence.NewGormTransactionScope(database.DB, event.NewOutboxPublisher(serializer)),
		Serializer: serializer,
		Outbox:     event.NewGormOutboxRepository(database.DB),
	}

	repo := persistence.NewGormAccountRepository(database.DB)
	for _, account := range accounting.StandardChart() {
		_, err := repo.SaveIfAbsent(context.Background(), account)
		require.NoError(t, err, "Failed to seed account %s", account.Code)
	}
	return store
}

// OutboxEvents returns the events of eventType written to the outbox, oldest first.
func (s *LedgerStore) OutboxEvents(t *testing.T, eventType string) []shared.DomainEvent {
	t.Helper()

	var rows []models.OutboxEntryModel
	require.NoError(t, s.DB.Where("event_type = ?", eventType).Order("created_at ASC").Find(&rows).Error)

	out := make([]shared.DomainEvent, 0, len(rows))
	for _, row := range rows {
		evt, err := s.Serializer.Deserialize(row.EventType, row.Payload)
		require.NoError(t, err, "Failed to deserialize %s", row.EventType)
		out = append(out, evt)
	}
	return out
}

// Count returns the number of rows of model matching the optional condition.
func (s *LedgerStore) Count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()

	var n int64
	q := s.DB.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
