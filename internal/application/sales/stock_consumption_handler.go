package sales

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/application/accounting"
	"github.com/erp/ledger/internal/application/ledger"
	domainaccounting "github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// StockConsumptionHandlerName is persisted in handler receipts and must not change
const StockConsumptionHandlerName = "inventory.stock_consumption"

// StockConsumptionHandler depletes FIFO stock batches for each sold line and
// books the consumed cost.
type StockConsumptionHandler struct {
	posting *accounting.PostingService
	guard   *ledger.ReceiptGuard
	logger  *zap.Logger
}

// NewStockConsumptionHandler creates a StockConsumptionHandler
func NewStockConsumptionHandler(posting *accounting.PostingService, guard *ledger.ReceiptGuard, logger *zap.Logger) *StockConsumptionHandler {
	return &StockConsumptionHandler{posting: posting, guard: guard, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *StockConsumptionHandler) EventTypes() []string {
	return []string{sales.EventSaleCompleted}
}

// HandlerName returns the stable receipt name
func (h *StockConsumptionHandler) HandlerName() string {
	return StockConsumptionHandlerName
}

// Handle consumes the oldest batches first. Unmapped products are skipped and
// a shortfall consumes what exists.
func (h *StockConsumptionHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	sale, ok := event.(*sales.SaleCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s", sales.EventSaleCompleted, event.EventType())
	}
	if sale.ProductID == nil {
		h.logger.Info("sku has no product mapping, stock not consumed",
			zap.String("event_id", sale.EventID().String()),
			zap.String("marketplace", sale.Marketplace.String()),
			zap.String("sku", sale.SKU),
		)
		return nil
	}
	if sale.Quantity <= 0 {
		return nil
	}

	var res sales.FIFOResult
	_, err := h.guard.Run(ctx, sale, StockConsumptionHandlerName, func(repos ledger.TransactionalRepositories) error {
		batches, err := repos.StockBatchRepo().ListAvailable(ctx, sale.CompanyID(), *sale.ProductID)
		if err != nil {
			return fmt.Errorf("failed to load stock batches: %w", err)
		}
		res = sales.AllocateFIFO(batches, sale.Quantity)
		for _, c := range res.Consumptions {
			ok, err := repos.StockBatchRepo().Consume(ctx, c.BatchID, c.Quantity)
			if err != nil {
				return fmt.Errorf("failed to consume batch %s: %w", c.BatchID, err)
			}
			if !ok {
				return fmt.Errorf("batch %s changed during consumption: %w", c.BatchID, shared.ErrConcurrencyConflict)
			}
		}
		if !res.TotalCost.IsPositive() {
			return nil
		}
		entry, err := domainaccounting.CostOfGoodsSlip(sale.CompanyID(), sale.EventID().String(), sale.OrderNumber, res.TotalCost, sale.OccurredAt())
		if err != nil {
			return err
		}
		return h.posting.PostWithin(ctx, repos, entry)
	})
	if err != nil {
		h.logger.Error("failed to consume stock",
			zap.String("event_id", sale.EventID().String()),
			zap.String("product_id", sale.ProductID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to consume stock: %w", err)
	}

	if res.Shortfall > 0 {
		h.logger.Warn("insufficient stock for sale",
			zap.String("event_id", sale.EventID().String()),
			zap.String("product_id", sale.ProductID.String()),
			zap.Int("requested", sale.Quantity),
			zap.Int("shortfall", res.Shortfall),
		)
	}
	return nil
}
