package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/integration"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockMarketplaceAdapter is a mock implementation of integration.MarketplaceAdapter
type MockMarketplaceAdapter struct {
	mock.Mock
}

func (m *MockMarketplaceAdapter) Code() integration.MarketplaceCode {
	return integration.MarketplaceTrendyol
}

func (m *MockMarketplaceAdapter) GetOrders(ctx context.Context, dateRange integration.DateRange) ([]integration.NormalizedOrder, error) {
	args := m.Called(ctx, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.NormalizedOrder), args.Error(1)
}

func normalizedOrder(number, status string, items ...integration.NormalizedOrderItem) integration.NormalizedOrder {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return integration.NormalizedOrder{
		ID:           "ty-" + number,
		OrderNumber:  number,
		CustomerName: "Ayse Yilmaz",
		Items:        items,
		TotalAmount:  total,
		Currency:     "TRY",
		Status:       status,
		OrderDate:    time.Now().UTC(),
	}
}

func line(sku string, qty int, price string) integration.NormalizedOrderItem {
	return integration.NormalizedOrderItem{SKU: sku, Quantity: qty, Price: decimal.RequireFromString(price), TaxRate: decimal.NewFromInt(20)}
}

func newSyncFixture(t *testing.T) (*OrderSyncService, *testutil.LedgerStore, *persistence.GormProductResolver) {
	t.Helper()
	store := testutil.NewLedgerStore(t)
	resolver := persistence.NewGormProductResolver(store.DB)
	return NewOrderSyncService(store.Scope, resolver, zap.NewNop()), store, resolver
}

func TestOrderSyncService_Sync_EmitsOneEventPerLineOfNewOrders(t *testing.T) {
	svc, store, resolver := newSyncFixture(t)
	ctx := context.Background()
	companyID := uuid.New()
	productID := uuid.New()
	require.NoError(t, resolver.Map(ctx, companyID, integration.MarketplaceTrendyol, "SKU-A", productID))

	adapter := new(MockMarketplaceAdapter)
	adapter.On("GetOrders", mock.Anything, mock.Anything).Return([]integration.NormalizedOrder{
		normalizedOrder("TY-1", "Created", line("SKU-A", 2, "60"), line("SKU-B", 1, "30")),
		normalizedOrder("TY-2", "Cancelled", line("SKU-A", 1, "60")),
	}, nil)

	dateRange := integration.LastDays(time.Now().UTC(), 7)
	res, err := svc.Sync(ctx, companyID, adapter, dateRange)
	require.NoError(t, err)
	assert.Equal(t, integration.MarketplaceTrendyol, res.Marketplace)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Events)

	events := store.OutboxEvents(t, sales.EventSaleCompleted)
	require.Len(t, events, 2)
	bySKU := map[string]*sales.SaleCompletedEvent{}
	for _, e := range events {
		sale := e.(*sales.SaleCompletedEvent)
		bySKU[sale.SKU] = sale
	}
	require.Contains(t, bySKU, "SKU-A")
	require.NotNil(t, bySKU["SKU-A"].ProductID)
	assert.Equal(t, productID, *bySKU["SKU-A"].ProductID)
	assert.True(t, bySKU["SKU-A"].SaleAmount.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, companyID, bySKU["SKU-A"].CompanyID())
	assert.Nil(t, bySKU["SKU-B"].ProductID)

	adapter.AssertCalled(t, "GetOrders", mock.Anything, dateRange)
}

func TestOrderSyncService_Sync_RepeatedSyncDoesNotReemit(t *testing.T) {
	svc, store, _ := newSyncFixture(t)
	ctx := context.Background()
	companyID := uuid.New()
	dateRange := integration.LastDays(time.Now().UTC(), 1)

	first := new(MockMarketplaceAdapter)
	first.On("GetOrders", mock.Anything, mock.Anything).Return([]integration.NormalizedOrder{
		normalizedOrder("TY-9", "Created", line("SKU-A", 1, "10")),
	}, nil)
	_, err := svc.Sync(ctx, companyID, first, dateRange)
	require.NoError(t, err)

	same := new(MockMarketplaceAdapter)
	same.On("GetOrders", mock.Anything, mock.Anything).Return([]integration.NormalizedOrder{
		normalizedOrder("TY-9", "Created", line("SKU-A", 1, "10")),
	}, nil)
	res, err := svc.Sync(ctx, companyID, same, dateRange)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Zero(t, res.Events)

	shipped := new(MockMarketplaceAdapter)
	shipped.On("GetOrders", mock.Anything, mock.Anything).Return([]integration.NormalizedOrder{
		normalizedOrder("TY-9", "Shipped", line("SKU-A", 1, "10")),
	}, nil)
	res, err = svc.Sync(ctx, companyID, shipped, dateRange)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Zero(t, res.Events)

	assert.Len(t, store.OutboxEvents(t, sales.EventSaleCompleted), 1)
	assert.Equal(t, int64(1), store.Count(t, &models.MarketplaceOrderModel{}, "order_number = ?", "TY-9"))
}

func TestOrderSyncService_Sync_CountsInvalidOrders(t *testing.T) {
	svc, store, _ := newSyncFixture(t)
	adapter := new(MockMarketplaceAdapter)
	noItems := normalizedOrder("TY-3", "Created")
	noNumber := normalizedOrder("", "Created", line("SKU-A", 1, "10"))
	zeroQty := normalizedOrder("TY-4", "Created", line("SKU-A", 0, "10"))
	adapter.On("GetOrders", mock.Anything, mock.Anything).Return([]integration.NormalizedOrder{
		noItems, noNumber, zeroQty, normalizedOrder("TY-5", "Created", line("SKU-A", 1, "10")),
	}, nil)

	res, err := svc.Sync(context.Background(), uuid.New(), adapter, integration.LastDays(time.Now().UTC(), 1))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 3, res.Invalid)
	assert.Equal(t, 1, res.Created)
	assert.Len(t, store.OutboxEvents(t, sales.EventSaleCompleted), 1)
}

func TestOrderSyncService_Sync_Errors(t *testing.T) {
	svc, _, _ := newSyncFixture(t)
	ctx := context.Background()

	adapter := new(MockMarketplaceAdapter)
	_, err := svc.Sync(ctx, uuid.New(), adapter, integration.DateRange{})
	assert.ErrorIs(t, err, integration.ErrInvalidDateRange)
	adapter.AssertNotCalled(t, "GetOrders", mock.Anything, mock.Anything)

	adapter.On("GetOrders", mock.Anything, mock.Anything).Return(nil, errors.New("503 from marketplace"))
	_, err = svc.Sync(ctx, uuid.New(), adapter, integration.LastDays(time.Now().UTC(), 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 from marketplace")
}

func TestOrderSyncService_Import(t *testing.T) {
	svc, store, _ := newSyncFixture(t)
	ctx := context.Background()
	companyID := uuid.New()
	orders := []integration.NormalizedOrder{
		normalizedOrder("HB-1", "Created", line("SKU-A", 1, "10"), line("SKU-B", 2, "5")),
	}

	res, err := svc.Import(ctx, companyID, integration.MarketplaceHepsiburada, orders)
	require.NoError(t, err)
	assert.Equal(t, integration.MarketplaceHepsiburada, res.Marketplace)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Events)

	res, err = svc.Import(ctx, companyID, integration.MarketplaceHepsiburada, orders)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Len(t, store.OutboxEvents(t, sales.EventSaleCompleted), 2)

	_, err = svc.Import(ctx, companyID, "AMAZON", orders)
	assert.ErrorIs(t, err, integration.ErrInvalidMarketplace)
}
