package models

import (
	"encoding/json"
	"time"

	"github.com/erp/ledger/internal/domain/integration"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketplaceOrderModel is an imported marketplace order. Items are kept as a JSON document.
type MarketplaceOrderModel struct {
	BaseModel
	CompanyID         uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_marketplace_orders_number,priority:1"`
	Marketplace       integration.MarketplaceCode `gorm:"type:varchar(20);not null;index"`
	MarketplaceID     string                      `gorm:"type:varchar(100);not null"`
	OrderNumber       string                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_marketplace_orders_number,priority:2"`
	CustomerName      string                      `gorm:"type:varchar(200)"`
	TotalAmount       decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	Currency          string                      `gorm:"type:varchar(3);not null"`
	Status            string                      `gorm:"type:varchar(50);not null"`
	OrderDate         time.Time                   `gorm:"not null;index"`
	ShipmentPackageID string                      `gorm:"type:varchar(100)"`
	ItemsJSON         []byte                      `gorm:"type:jsonb;column:items;not null"`
}

// TableName returns the table name for GORM
func (MarketplaceOrderModel) TableName() string {
	return "marketplace_orders"
}

// ToDomain converts the model to a domain Order
func (m *MarketplaceOrderModel) ToDomain() *sales.Order {
	o := &sales.Order{
		ID:                m.ID,
		CompanyID:         m.CompanyID,
		Marketplace:       m.Marketplace,
		MarketplaceID:     m.MarketplaceID,
		OrderNumber:       m.OrderNumber,
		CustomerName:      m.CustomerName,
		TotalAmount:       m.TotalAmount,
		Currency:          m.Currency,
		Status:            m.Status,
		OrderDate:         m.OrderDate,
		ShipmentPackageID: m.ShipmentPackageID,
		Items:             make([]integration.NormalizedOrderItem, 0),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if len(m.ItemsJSON) > 0 {
		var items []integration.NormalizedOrderItem
		if err := json.Unmarshal(m.ItemsJSON, &items); err == nil {
			o.Items = items
		}
	}
	return o
}

// MarketplaceOrderModelFromDomain creates a model from a domain Order
func MarketplaceOrderModelFromDomain(o *sales.Order) (*MarketplaceOrderModel, error) {
	items := o.Items
	if items == nil {
		items = []integration.NormalizedOrderItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return &MarketplaceOrderModel{
		BaseModel:         newBase(o.ID, o.CreatedAt, o.UpdatedAt),
		CompanyID:         o.CompanyID,
		Marketplace:       o.Marketplace,
		MarketplaceID:     o.MarketplaceID,
		OrderNumber:       o.OrderNumber,
		CustomerName:      o.CustomerName,
		TotalAmount:       o.TotalAmount,
		Currency:          o.Currency,
		Status:            o.Status,
		OrderDate:         o.OrderDate,
		ShipmentPackageID: o.ShipmentPackageID,
		ItemsJSON:         raw,
	}, nil
}

// StockBatchModel is a received lot consumed oldest first
type StockBatchModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_batches_fifo,priority:1"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_batches_fifo,priority:2"`
	ReceivedAt   time.Time       `gorm:"not null;index:idx_stock_batches_fifo,priority:3"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InitialQty   int             `gorm:"not null"`
	RemainingQty int             `gorm:"not null;check:remaining_qty >= 0"`
}

// TableName returns the table name for GORM
func (StockBatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the model to a domain StockBatch
func (m *StockBatchModel) ToDomain() *sales.StockBatch {
	return &sales.StockBatch{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		ProductID:    m.ProductID,
		ReceivedAt:   m.ReceivedAt,
		UnitCost:     m.UnitCost,
		InitialQty:   m.InitialQty,
		RemainingQty: m.RemainingQty,
	}
}

// StockBatchModelFromDomain creates a model from a domain StockBatch
func StockBatchModelFromDomain(b *sales.StockBatch) *StockBatchModel {
	return &StockBatchModel{
		ID:           b.ID,
		CompanyID:    b.CompanyID,
		ProductID:    b.ProductID,
		ReceivedAt:   b.ReceivedAt,
		UnitCost:     b.UnitCost,
		InitialQty:   b.InitialQty,
		RemainingQty: b.RemainingQty,
	}
}

// ProductMappingModel maps a marketplace SKU to a local product
type ProductMappingModel struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_product_mappings_sku,priority:1"`
	Marketplace integration.MarketplaceCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_product_mappings_sku,priority:2"`
	SKU         string                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_mappings_sku,priority:3"`
	ProductID   uuid.UUID                   `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductMappingModel) TableName() string {
	return "product_mappings"
}
