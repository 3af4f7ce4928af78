package integration

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketplaceCode identifies a marketplace channel
type MarketplaceCode string

const (
	MarketplaceTrendyol    MarketplaceCode = "TRENDYOL"
	MarketplaceHepsiburada MarketplaceCode = "HEPSIBURADA"
	MarketplaceN11         MarketplaceCode = "N11"
	MarketplacePazarama    MarketplaceCode = "PAZARAMA"
)

// IsValid returns true if the marketplace code is known
func (c MarketplaceCode) IsValid() bool {
	switch c {
	case MarketplaceTrendyol, MarketplaceHepsiburada, MarketplaceN11, MarketplacePazarama:
		return true
	}
	return false
}

// String returns the string representation
func (c MarketplaceCode) String() string {
	return string(c)
}

var (
	ErrInvalidDateRange   = shared.NewDomainError("INVALID_DATE_RANGE", "Date range start must be before end")
	ErrInvalidMarketplace = shared.NewDomainError("INVALID_MARKETPLACE", "Invalid marketplace code")
)

// DateRange is a half-open [Start, End) window of order dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the range ending now and covering the given number of days
func LastDays(now time.Time, days int) DateRange {
	if days < 1 {
		days = 1
	}
	return DateRange{Start: now.AddDate(0, 0, -days), End: now}
}

// Validate checks the range is non-empty
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !r.Start.Before(r.End) {
		return ErrInvalidDateRange
	}
	return nil
}

// NormalizedOrderItem is one line of a marketplace order
type NormalizedOrderItem struct {
	SKU      string          `json:"sku" validate:"required"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// LineTotal is price times quantity, tax included
func (i NormalizedOrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NormalizedOrder is the vendor-neutral order every adapter produces
type NormalizedOrder struct {
	ID                string                `json:"id" validate:"required"`
	OrderNumber       string                `json:"order_number" validate:"required"`
	CustomerName      string                `json:"customer_name"`
	Items             []NormalizedOrderItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount       decimal.Decimal       `json:"total_amount"`
	Currency          string                `json:"currency"`
	Status            string                `json:"status" validate:"required"`
	OrderDate         time.Time             `json:"order_date"`
	ShipmentPackageID string                `json:"shipment_package_id"`
}

// MarketplaceAdapter is the capability every vendor integration implements
type MarketplaceAdapter interface {
	Code() MarketplaceCode
	GetOrders(ctx context.Context, dateRange DateRange) ([]NormalizedOrder, error)
}

// ProductResolver maps a marketplace SKU to a local product
type ProductResolver interface {
	// ResolveProduct returns nil when the SKU is not mapped
	ResolveProduct(ctx context.Context, companyID uuid.UUID, marketplace MarketplaceCode, sku string) (*uuid.UUID, error)
}
