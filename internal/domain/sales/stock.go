package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBatch is a received lot of a product. Sales consume the oldest lots first.
type StockBatch struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	ProductID    uuid.UUID
	ReceivedAt   time.Time
	UnitCost     decimal.Decimal
	InitialQty   int
	RemainingQty int
}

// Consumption is the quantity taken from one batch
type Consumption struct {
	BatchID  uuid.UUID
	Quantity int
	Cost     decimal.Decimal
}

// FIFOResult describes the outcome of allocating a sale against batches
type FIFOResult struct {
	Consumptions []Consumption
	TotalCost    decimal.Decimal
	Shortfall    int
}

// AllocateFIFO takes qty units from batches in the given order (oldest first).
// It does not mutate the batches; any unmet quantity is reported as Shortfall.
func AllocateFIFO(batches []*StockBatch, qty int) FIFOResult {
	res := FIFOResult{TotalCost: decimal.Zero}
	remaining := qty
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.RemainingQty <= 0 {
			continue
		}
		take := b.RemainingQty
		if take > remaining {
			take = remaining
		}
		cost := b.UnitCost.Mul(decimal.NewFromInt(int64(take)))
		res.Consumptions = append(res.Consumptions, Consumption{BatchID: b.ID, Quantity: take, Cost: cost})
		res.TotalCost = res.TotalCost.Add(cost)
		remaining -= take
	}
	res.Shortfall = remaining
	return res
}
