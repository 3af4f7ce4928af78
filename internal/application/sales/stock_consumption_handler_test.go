package sales

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/application/accounting"
	"github.com/erp/ledger/internal/application/ledger"
	domainaccounting "github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/integration"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stockFixture struct {
	store     *testutil.LedgerStore
	posting   *accounting.PostingService
	handler   *StockConsumptionHandler
	companyID uuid.UUID
	productID uuid.UUID
}

func newStockFixture(t *testing.T) *stockFixture {
	t.Helper()
	store := testutil.NewLedgerStore(t)
	posting := accounting.NewPostingService(store.Scope, nil, zap.NewNop())
	return &stockFixture{
		store:     store,
		posting:   posting,
		handler:   NewStockConsumptionHandler(posting, ledger.NewReceiptGuard(store.Scope, zap.NewNop()), zap.NewNop()),
		companyID: uuid.New(),
		productID: uuid.New(),
	}
}

func (f *stockFixture) batch(t *testing.T, age time.Duration, qty int, unitCost string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	b := &sales.StockBatch{
		ID:           uuid.New(),
		CompanyID:    f.companyID,
		ProductID:    f.productID,
		ReceivedAt:   time.Now().UTC().Add(-age),
		UnitCost:     decimal.RequireFromString(unitCost),
		InitialQty:   qty,
		RemainingQty: qty,
	}
	require.NoError(t, f.store.Scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		return repos.StockBatchRepo().Create(ctx, b)
	}))
	return b.ID
}

func (f *stockFixture) remaining(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var row models.StockBatchModel
	require.NoError(t, f.store.DB.First(&row, "id = ?", id).Error)
	return row.RemainingQty
}

func (f *stockFixture) sale(qty int, productID *uuid.UUID) *sales.SaleCompletedEvent {
	order := &sales.Order{ID: uuid.New(), CompanyID: f.companyID, Marketplace: integration.MarketplaceTrendyol, OrderNumber: "TY-77"}
	item := integration.NormalizedOrderItem{SKU: "SKU-A", Quantity: qty, Price: decimal.NewFromInt(50)}
	return sales.NewSaleCompletedEvent(order, item, productID)
}

func TestStockConsumptionHandler_ConsumesOldestBatchesFirst(t *testing.T) {
	f := newStockFixture(t)
	ctx := context.Background()
	oldest := f.batch(t, 48*time.Hour, 3, "10")
	newer := f.batch(t, 24*time.Hour, 5, "12")

	evt := f.sale(4, &f.productID)
	require.NoError(t, f.handler.Handle(ctx, evt))
	require.NoError(t, f.handler.Handle(ctx, evt))

	assert.Equal(t, 0, f.remaining(t, oldest))
	assert.Equal(t, 4, f.remaining(t, newer))

	cogs, err := f.posting.AccountBalance(ctx, f.companyID, domainaccounting.AccountCostOfGoodsSold)
	require.NoError(t, err)
	assert.True(t, cogs.Net.Equal(decimal.NewFromInt(42)), "got %s", cogs.Net)

	merchandise, err := f.posting.AccountBalance(ctx, f.companyID, domainaccounting.AccountMerchandise)
	require.NoError(t, err)
	assert.True(t, merchandise.Net.Equal(decimal.NewFromInt(-42)), "got %s", merchandise.Net)

	assert.Equal(t, int64(1), f.store.Count(t, &models.HandlerReceiptModel{}, "event_id = ? AND handler_name = ?",
		evt.EventID(), StockConsumptionHandlerName))
}

func TestStockConsumptionHandler_ShortfallConsumesWhatExists(t *testing.T) {
	f := newStockFixture(t)
	only := f.batch(t, time.Hour, 2, "7.50")

	require.NoError(t, f.handler.Handle(context.Background(), f.sale(5, &f.productID)))
	assert.Equal(t, 0, f.remaining(t, only))

	cogs, err := f.posting.AccountBalance(context.Background(), f.companyID, domainaccounting.AccountCostOfGoodsSold)
	require.NoError(t, err)
	assert.True(t, cogs.Net.Equal(decimal.NewFromInt(15)), "got %s", cogs.Net)
}

func TestStockConsumptionHandler_NoStockPostsNothing(t *testing.T) {
	f := newStockFixture(t)
	evt := f.sale(1, &f.productID)

	require.NoError(t, f.handler.Handle(context.Background(), evt))
	assert.Equal(t, int64(0), f.store.Count(t, &models.JournalEntryModel{}, "source_type = ?", domainaccounting.SourceTypeStockConsumption))
	assert.Equal(t, int64(1), f.store.Count(t, &models.HandlerReceiptModel{}, "event_id = ?", evt.EventID()))
}

func TestStockConsumptionHandler_SkipsUnmappedProducts(t *testing.T) {
	f := newStockFixture(t)
	batch := f.batch(t, time.Hour, 3, "10")

	require.NoError(t, f.handler.Handle(context.Background(), f.sale(2, nil)))
	assert.Equal(t, 3, f.remaining(t, batch))
	assert.Equal(t, int64(0), f.store.Count(t, &models.HandlerReceiptModel{}, ""))
}

func TestStockConsumptionHandler_Metadata(t *testing.T) {
	f := newStockFixture(t)
	assert.Equal(t, []string{sales.EventSaleCompleted}, f.handler.EventTypes())
	assert.Equal(t, StockConsumptionHandlerName, f.handler.HandlerName())
	assert.Error(t, f.handler.Handle(context.Background(), testutil.NewTestEvent("other.event", uuid.New())))
}
