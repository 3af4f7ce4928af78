package sales

import (
	"github.com/erp/ledger/internal/domain/integration"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event and aggregate names of the sales context
const (
	EventSaleCompleted = "sale.completed"
	AggregateOrder     = "Order"
)

// SaleCompletedEvent is emitted once per line of a newly imported order.
// ProductID is nil when the SKU has no product mapping; stock is then skipped
// but accounting still posts.
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	ProductID   *uuid.UUID                  `json:"product_id"`
	Marketplace integration.MarketplaceCode `json:"marketplace"`
	SaleAmount  decimal.Decimal             `json:"sale_amount"`
	Quantity    int                         `json:"quantity"`
	TaxRate     decimal.Decimal             `json:"tax_rate"`
	SKU         string                      `json:"sku"`
	OrderNumber string                      `json:"order_number"`
}

// NewSaleCompletedEvent builds the event for one order line
func NewSaleCompletedEvent(order *Order, item integration.NormalizedOrderItem, productID *uuid.UUID) *SaleCompletedEvent {
	rate := item.TaxRate
	if rate.IsZero() {
		rate = DefaultTaxRate
	}
	return &SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventSaleCompleted, AggregateOrder, order.ID, order.CompanyID),
		ProductID:       productID,
		Marketplace:     order.Marketplace,
		SaleAmount:      item.LineTotal(),
		Quantity:        item.Quantity,
		TaxRate:         rate,
		SKU:             item.SKU,
		OrderNumber:     order.OrderNumber,
	}
}
