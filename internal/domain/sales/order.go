package sales

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate applies when a marketplace omits the VAT rate of a line
var DefaultTaxRate = decimal.NewFromInt(20)

// Order is a marketplace order imported into the back office.
// (CompanyID, OrderNumber) is unique so repeated syncs update rather than duplicate.
type Order struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	Marketplace       integration.MarketplaceCode
	MarketplaceID     string
	OrderNumber       string
	CustomerName      string
	TotalAmount       decimal.Decimal
	Currency          string
	Status            string
	OrderDate         time.Time
	ShipmentPackageID string
	Items             []integration.NormalizedOrderItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewOrderFromNormalized maps an adapter order onto a local order
func NewOrderFromNormalized(companyID uuid.UUID, marketplace integration.MarketplaceCode, n integration.NormalizedOrder) *Order {
	currency := strings.ToUpper(strings.TrimSpace(n.Currency))
	if currency == "" {
		currency = "TRY"
	}
	orderDate := n.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}
	now := time.Now().UTC()
	return &Order{
		ID:                uuid.New(),
		CompanyID:         companyID,
		Marketplace:       marketplace,
		MarketplaceID:     n.ID,
		OrderNumber:       n.OrderNumber,
		CustomerName:      n.CustomerName,
		TotalAmount:       n.TotalAmount,
		Currency:          currency,
		Status:            n.Status,
		OrderDate:         orderDate,
		ShipmentPackageID: n.ShipmentPackageID,
		Items:             n.Items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsCancellation reports whether the marketplace status voids the sale
func IsCancellation(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CANCELLED", "RETURNED":
		return true
	}
	return false
}
