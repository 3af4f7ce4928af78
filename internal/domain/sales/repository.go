package sales

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository persists marketplace orders
type OrderRepository interface {
	// CreateIfAbsent inserts unless (company_id, order_number) exists; false means duplicate
	CreateIfAbsent(ctx context.Context, order *Order) (bool, error)
	FindByNumber(ctx context.Context, companyID uuid.UUID, orderNumber string) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, shipmentPackageID string) error
}

// StockBatchRepository persists FIFO stock lots
type StockBatchRepository interface {
	Create(ctx context.Context, batch *StockBatch) error
	// ListAvailable returns batches with remaining quantity, oldest first
	ListAvailable(ctx context.Context, companyID, productID uuid.UUID) ([]*StockBatch, error)
	// Consume decrements a batch only if it still holds qty; false means it changed concurrently
	Consume(ctx context.Context, batchID uuid.UUID, qty int) (bool, error)
}
