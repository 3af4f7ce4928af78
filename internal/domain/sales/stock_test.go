package sales

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(qty int, cost string, age time.Duration) *StockBatch {
	return &StockBatch{
		ID:           uuid.New(),
		ReceivedAt:   time.Now().Add(-age),
		UnitCost:     decimal.RequireFromString(cost),
		InitialQty:   qty,
		RemainingQty: qty,
	}
}

func TestAllocateFIFO(t *testing.T) {
	old := batch(3, "10", 48*time.Hour)
	empty := batch(0, "99", 36*time.Hour)
	fresh := batch(5, "12", time.Hour)

	res := AllocateFIFO([]*StockBatch{old, empty, fresh}, 4)

	require.Len(t, res.Consumptions, 2)
	assert.Equal(t, old.ID, res.Consumptions[0].BatchID)
	assert.Equal(t, 3, res.Consumptions[0].Quantity)
	assert.Equal(t, 1, res.Consumptions[1].Quantity)
	assert.True(t, res.TotalCost.Equal(decimal.NewFromInt(42)))
	assert.Zero(t, res.Shortfall)
	assert.Equal(t, 3, old.RemainingQty, "allocation must not mutate batches")
}

func TestAllocateFIFO_Shortfall(t *testing.T) {
	res := AllocateFIFO([]*StockBatch{batch(2, "5", time.Hour)}, 5)
	assert.Equal(t, 3, res.Shortfall)
	assert.True(t, res.TotalCost.Equal(decimal.NewFromInt(10)))
}

func TestNewSaleCompletedEvent_DefaultsTaxRate(t *testing.T) {
	order := NewOrderFromNormalized(uuid.New(), integration.MarketplaceTrendyol, integration.NormalizedOrder{
		ID: "ty-1", OrderNumber: "1001", Status: "Created",
	})
	assert.Equal(t, "TRY", order.Currency)

	ev := NewSaleCompletedEvent(order, integration.NormalizedOrderItem{SKU: "SKU-1", Quantity: 2, Price: decimal.NewFromInt(60)}, nil)
	assert.Equal(t, EventSaleCompleted, ev.EventType())
	assert.Equal(t, order.ID, ev.AggregateID())
	assert.True(t, ev.TaxRate.Equal(DefaultTaxRate))
	assert.True(t, ev.SaleAmount.Equal(decimal.NewFromInt(120)))
	assert.Nil(t, ev.ProductID)
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation("cancelled"))
	assert.True(t, IsCancellation("Returned"))
	assert.False(t, IsCancellation("Delivered"))
}
