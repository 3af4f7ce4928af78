package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPostgres opens GORM on a sqlmock connection with the postgres dialect
func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func TestGormExternalRequestRepository_Claim(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	claimSQL := regexp.QuoteMeta(`UPDATE "external_requests" SET "claimed_at"=$1,"claimed_by"=$2 WHERE (id = $3 AND status = $4) AND (claimed_at IS NULL OR claimed_at < $5)`)

	t.Run("wins an unclaimed row", func(t *testing.T) {
		db, mock, mockDB := newMockPostgres(t)
		defer mockDB.Close()
		repo := NewGormExternalRequestRepository(db)
		id := uuid.New()

		mock.ExpectExec(claimSQL).
			WithArgs(now, "worker-a", id, reconciliation.RequestPending, now.Add(-10*time.Minute)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.Claim(context.Background(), id, "worker-a", now, 10*time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses when another worker holds the lease", func(t *testing.T) {
		db, mock, mockDB := newMockPostgres(t)
		defer mockDB.Close()
		repo := NewGormExternalRequestRepository(db)

		mock.ExpectExec(claimSQL).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.Claim(context.Background(), uuid.New(), "worker-b", now, 10*time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormExternalRequestRepository_MarkSuccessRequiresHolder(t *testing.T) {
	db, mock, mockDB := newMockPostgres(t)
	defer mockDB.Close()
	repo := NewGormExternalRequestRepository(db)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "external_requests" SET`)).
		WithArgs(nil, nil, "", []byte(`{}`), reconciliation.RequestSuccess, sqlmock.AnyArg(), id, reconciliation.RequestPending, "worker-a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkSuccess(context.Background(), id, "worker-a", []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, ok, "a lost lease reports no transition")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStockBatchRepository_ConsumeIsConditional(t *testing.T) {
	db, mock, mockDB := newMockPostgres(t)
	defer mockDB.Close()
	repo := NewGormStockBatchRepository(db)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "stock_batches" SET "remaining_qty"=remaining_qty - $1 WHERE id = $2 AND remaining_qty >= $3`)).
		WithArgs(4, id, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Consume(context.Background(), id, 4)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSellerLedgerRepository_InsertIfAbsentUsesOnConflict(t *testing.T) {
	db, mock, mockDB := newMockPostgres(t)
	defer mockDB.Close()
	repo := NewGormSellerLedgerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "seller_balance_ledger"`) + `.*` + regexp.QuoteMeta(`ON CONFLICT ("idempotency_key") DO NOTHING`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	orderID := uuid.New()
	inserted, err := repo.InsertIfAbsent(context.Background(), &escrow.SellerLedgerEntry{
		ID:              uuid.New(),
		SellerCompanyID: uuid.New(),
		Type:            escrow.EntryCredit,
		Currency:        "TRY",
		NetworkOrderID:  &orderID,
		IdempotencyKey:  escrow.ReleaseKey(orderID),
	})
	require.NoError(t, err)
	assert.False(t, inserted, "a replayed key inserts nothing")
	assert.NoError(t, mock.ExpectationsWereMet())
}
