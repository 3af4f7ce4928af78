package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides the identity and timestamps shared by mutable rows.
// Insert-only tables carry CreatedAt alone.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func newBase(id uuid.UUID, createdAt, updatedAt time.Time) BaseModel {
	return BaseModel{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt}
}

// All returns every model in dependency order, for AutoMigrate in tests and local runs.
// Production schemas are managed by the SQL migrations.
func All() []any {
	return []any{
		&AccountModel{},
		&JournalEntryModel{},
		&JournalLineModel{},
		&NetworkOrderModel{},
		&NetworkPaymentModel{},
		&SellerLedgerEntryModel{},
		&CommissionLedgerModel{},
		&SellerBalanceModel{},
		&PaymentEventInboxModel{},
		&ShipmentModel{},
		&ShipmentEventModel{},
		&ShipmentEventInboxModel{},
		&ExternalRequestModel{},
		&SalesInvoiceModel{},
		&MarketplaceOrderModel{},
		&StockBatchModel{},
		&ProductMappingModel{},
		&HandlerReceiptModel{},
		&OutboxEntryModel{},
	}
}
