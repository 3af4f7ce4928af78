package escrow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType is the direction of a seller balance movement
type EntryType string

const (
	EntryCredit EntryType = "CREDIT"
	EntryDebit  EntryType = "DEBIT"
)

// SellerLedgerEntry is one immutable movement of a seller's balance.
// The balance is always the sum over these rows.
type SellerLedgerEntry struct {
	ID              uuid.UUID
	SellerCompanyID uuid.UUID
	Type            EntryType
	Amount          decimal.Decimal
	Currency        string
	NetworkOrderID  *uuid.UUID
	IdempotencyKey  string
	Description     string
	CreatedAt       time.Time
}

// CommissionLedgerEntry records the platform's commission on a released order
type CommissionLedgerEntry struct {
	ID             uuid.UUID
	NetworkOrderID uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	CreatedAt      time.Time
}

// ReleaseKey is the idempotency key of the seller credit for an order's escrow release
func ReleaseKey(orderID uuid.UUID) string {
	return fmt.Sprintf("%s:RELEASE", orderID)
}

// CommissionKey is the idempotency key of the platform commission row for an order
func CommissionKey(orderID uuid.UUID) string {
	return fmt.Sprintf("%s:COMMISSION", orderID)
}

// NewReleaseCredit builds the seller credit for a released escrow order
func NewReleaseCredit(order *NetworkOrder, triggeredBy string) *SellerLedgerEntry {
	orderID := order.ID
	return &SellerLedgerEntry{
		ID:              uuid.New(),
		SellerCompanyID: order.SellerCompanyID,
		Type:            EntryCredit,
		Amount:          order.SellerNet(),
		Currency:        order.Currency,
		NetworkOrderID:  &orderID,
		IdempotencyKey:  ReleaseKey(order.ID),
		Description:     fmt.Sprintf("Escrow release for order %s (%s)", order.OrderNumber, triggeredBy),
		CreatedAt:       time.Now().UTC(),
	}
}

// NewCommissionEntry builds the commission row for an order
func NewCommissionEntry(order *NetworkOrder) *CommissionLedgerEntry {
	return &CommissionLedgerEntry{
		ID:             uuid.New(),
		NetworkOrderID: order.ID,
		Amount:         order.CommissionAmount,
		Currency:       order.Currency,
		IdempotencyKey: CommissionKey(order.ID),
		CreatedAt:      time.Now().UTC(),
	}
}

// Balance is a seller's derived position
type Balance struct {
	SellerCompanyID uuid.UUID       `json:"seller_company_id"`
	Withdrawable    decimal.Decimal `json:"withdrawable"`
	LockedEscrow    decimal.Decimal `json:"locked_escrow"`
}
