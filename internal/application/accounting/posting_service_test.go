package accounting

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPostingFixture(t *testing.T) (*PostingService, *testutil.LedgerStore) {
	t.Helper()
	store := testutil.NewLedgerStore(t)
	return NewPostingService(store.Scope, nil, zap.NewNop()), store
}

func checkCommand(companyID uuid.UUID, checkID string, amount decimal.Decimal) PostCommand {
	return PostCommand{
		CompanyID:   companyID,
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "Check received CHK-1",
		SourceType:  accounting.SourceTypeCheck,
		SourceID:    checkID,
		Lines: []accounting.JournalLine{
			{AccountCode: accounting.AccountChecksReceived, Side: accounting.SideDebit, Amount: amount},
			{AccountCode: accounting.AccountReceivables, Side: accounting.SideCredit, Amount: amount},
		},
	}
}

func TestPostingService_Post_PersistsBalancedEntry(t *testing.T) {
	svc, store := newPostingFixture(t)
	ctx := context.Background()
	companyID := uuid.New()

	entry, err := svc.Post(ctx, checkCommand(companyID, "check-1", decimal.NewFromInt(1000)))
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, int64(1), store.Count(t, &models.JournalEntryModel{}, ""))
	assert.Equal(t, int64(2), store.Count(t, &models.JournalLineModel{}, "entry_id = ?", entry.ID))

	checks, err := svc.AccountBalance(ctx, companyID, accounting.AccountChecksReceived)
	require.NoError(t, err)
	assert.True(t, checks.Net.Equal(decimal.NewFromInt(1000)), "got %s", checks.Net)

	receivables, err := svc.AccountBalance(ctx, companyID, accounting.AccountReceivables)
	require.NoError(t, err)
	assert.True(t, receivables.Net.Equal(decimal.NewFromInt(-1000)), "got %s", receivables.Net)
}

func TestPostingService_Post_RejectsInvalidSlipsWithoutWriting(t *testing.T) {
	companyID := uuid.New()
	tests := []struct {
		name    string
		lines   []accounting.JournalLine
		wantErr error
	}{
		{
			name: "unbalanced",
			lines: []accounting.JournalLine{
				{AccountCode: accounting.AccountChecksReceived, Side: accounting.SideDebit, Amount: decimal.NewFromInt(1000)},
				{AccountCode: accounting.AccountReceivables, Side: accounting.SideCredit, Amount: decimal.NewFromInt(999)},
			},
			wantErr: accounting.ErrUnbalancedEntry,
		},
		{
			name: "zero amount",
			lines: []accounting.JournalLine{
				{AccountCode: accounting.AccountChecksReceived, Side: accounting.SideDebit, Amount: decimal.Zero},
				{AccountCode: accounting.AccountReceivables, Side: accounting.SideCredit, Amount: decimal.Zero},
			},
			wantErr: accounting.ErrNonPositiveAmount,
		},
		{
			name: "unknown account",
			lines: []accounting.JournalLine{
				{AccountCode: "999", Side: accounting.SideDebit, Amount: decimal.NewFromInt(5)},
				{AccountCode: accounting.AccountReceivables, Side: accounting.SideCredit, Amount: decimal.NewFromInt(5)},
			},
			wantErr: accounting.ErrUnknownAccount,
		},
		{
			name:    "no lines",
			lines:   nil,
			wantErr: accounting.ErrEmptyEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newPostingFixture(t)
			cmd := checkCommand(companyID, "check-"+tt.name, decimal.NewFromInt(1))
			cmd.Lines = tt.lines

			_, err := svc.Post(context.Background(), cmd)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(0), store.Count(t, &models.JournalEntryModel{}, ""))
			assert.Equal(t, int64(0), store.Count(t, &models.JournalLineModel{}, ""))
		})
	}
}

func TestPostingService_Post_RejectsSecondActiveEntryForSource(t *testing.T) {
	svc, store := newPostingFixture(t)
	ctx := context.Background()
	companyID := uuid.New()

	_, err := svc.Post(ctx, checkCommand(companyID, "check-1", decimal.NewFromInt(10)))
	require.NoError(t, err)

	_, err = svc.Post(ctx, checkCommand(companyID, "check-1", decimal.NewFromInt(10)))
	assert.ErrorIs(t, err, accounting.ErrSourceAlreadyPosted)
	assert.Equal(t, int64(1), store.Count(t, &models.JournalEntryModel{}, ""))
}

func TestPostingService_Storno_NetsSourceToZero(t *testing.T) {
	svc, store := newPostingFixture(t)
	ctx := context.Background()
	companyID := uuid.New()

	original, err := svc.Post(ctx, checkCommand(companyID, "check-1", decimal.NewFromInt(1000)))
	require.NoError(t, err)

	storno, err := svc.Storno(ctx, original.ID, "bounced")
	require.NoError(t, err)
	require.NotNil(t, storno.ReversalOf)
	assert.Equal(t, original.ID, *storno.ReversalOf)

	net, err := svc.SourceNet(ctx, companyID, accounting.SourceTypeCheck, "check-1")
	require.NoError(t, err)
	require.Contains(t, net, accounting.AccountChecksReceived)
	require.Contains(t, net, accounting.AccountReceivables)
	assert.True(t, net[accounting.AccountChecksReceived].IsZero(), "checks received net %s", net[accounting.AccountChecksReceived])
	assert.True(t, net[accounting.AccountReceivables].IsZero(), "receivables net %s", net[accounting.AccountReceivables])

	checks, err := svc.AccountBalance(ctx, companyID, accounting.AccountChecksReceived)
	require.NoError(t, err)
	assert.True(t, checks.Net.IsZero())
	assert.True(t, checks.Debit.Equal(decimal.NewFromInt(1000)))
	assert.True(t, checks.Credit.Equal(decimal.NewFromInt(1000)))

	// original lines are never rewritten
	assert.Equal(t, int64(2), store.Count(t, &models.JournalLineModel{}, "entry_id = ?", original.ID))
}

func TestPostingService_Storno_FreesSourceForRepost(t *testing.T) {
	svc, _ := newPostingFixture(t)
	ctx := context.Background()
	companyID := uuid.New()

	original, err := svc.Post(ctx, checkCommand(companyID, "check-1", decimal.NewFromInt(1000)))
	require.NoError(t, err)
	_, err = svc.Storno(ctx, original.ID, "wrong amount")
	require.NoError(t, err)

	exists, err := svc.ExistsActiveBySource(ctx, companyID, accounting.SourceTypeCheck, "check-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Post(ctx, checkCommand(companyID, "check-1", decimal.NewFromInt(900)))
	assert.NoError(t, err)
}

func TestPostingService_Storno_Rejections(t *testing.T) {
	svc, _ := newPostingFixture(t)
	ctx := context.Background()

	original, err := svc.Post(ctx, checkCommand(uuid.New(), "check-1", decimal.NewFromInt(1000)))
	require.NoError(t, err)
	storno, err := svc.Storno(ctx, original.ID, "first")
	require.NoError(t, err)

	t.Run("twice", func(t *testing.T) {
		_, err := svc.Storno(ctx, original.ID, "second")
		assert.ErrorIs(t, err, accounting.ErrAlreadyReversed)
	})
	t.Run("a storno", func(t *testing.T) {
		_, err := svc.Storno(ctx, storno.ID, "undo")
		assert.ErrorIs(t, err, accounting.ErrCannotReverseStorno)
	})
	t.Run("unknown entry", func(t *testing.T) {
		_, err := svc.Storno(ctx, uuid.New(), "missing")
		assert.Error(t, err)
	})
}

func TestPostingService_SeedChart_IsIdempotent(t *testing.T) {
	svc, _ := newPostingFixture(t)

	inserted, err := svc.SeedChart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "store fixture already seeds the chart")
}

func TestPostingService_PostCheckReceived(t *testing.T) {
	svc, store := newPostingFixture(t)
	ctx := context.Background()
	companyID := uuid.New()
	cmd := CheckReceivedCommand{
		CompanyID: companyID,
		CheckID:   "check-7",
		CheckNo:   "CHK-7",
		Amount:    decimal.NewFromInt(250),
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	entry, err := svc.PostCheckReceived(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, accounting.SourceTypeCheck, entry.SourceType)
	assert.Equal(t, "check-7", entry.SourceID)

	_, err = svc.PostCheckReceived(ctx, cmd)
	assert.ErrorIs(t, err, accounting.ErrSourceAlreadyPosted)
	assert.Equal(t, int64(1), store.Count(t, &models.JournalEntryModel{}, ""))

	checks, err := svc.AccountBalance(ctx, companyID, accounting.AccountChecksReceived)
	require.NoError(t, err)
	assert.True(t, checks.Net.Equal(decimal.NewFromInt(250)), "got %s", checks.Net)

	cmd.CheckID = "check-8"
	cmd.Amount = decimal.Zero
	_, err = svc.PostCheckReceived(ctx, cmd)
	assert.Error(t, err)
	assert.Equal(t, int64(1), store.Count(t, &models.JournalEntryModel{}, ""))
}
