package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NetworkOrderModel is a B2B network order
type NetworkOrderModel struct {
	BaseModel
	OrderNumber      string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	BuyerCompanyID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	SellerCompanyID  uuid.UUID          `gorm:"type:uuid;not null;index"`
	Subtotal         decimal.Decimal    `gorm:"type:decimal(18,4);not null;check:chk_network_orders_amounts,subtotal > 0 AND commission_amount >= 0 AND escrow_fee >= 0 AND commission_amount + escrow_fee <= subtotal"`
	CommissionAmount decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	EscrowFee        decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Currency         string             `gorm:"type:varchar(3);not null"`
	Status           escrow.OrderStatus `gorm:"type:varchar(20);not null;index:idx_network_orders_status_completed,priority:1"`
	CompletedAt      *time.Time         `gorm:"index:idx_network_orders_status_completed,priority:2"`
}

// TableName returns the table name for GORM
func (NetworkOrderModel) TableName() string {
	return "network_orders"
}

// ToDomain converts the model to a domain NetworkOrder
func (m *NetworkOrderModel) ToDomain() *escrow.NetworkOrder {
	return &escrow.NetworkOrder{
		ID:               m.ID,
		OrderNumber:      m.OrderNumber,
		BuyerCompanyID:   m.BuyerCompanyID,
		SellerCompanyID:  m.SellerCompanyID,
		Subtotal:         m.Subtotal,
		CommissionAmount: m.CommissionAmount,
		EscrowFee:        m.EscrowFee,
		Currency:         m.Currency,
		Status:           m.Status,
		CompletedAt:      m.CompletedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// NetworkOrderModelFromDomain creates a model from a domain NetworkOrder
func NetworkOrderModelFromDomain(o *escrow.NetworkOrder) *NetworkOrderModel {
	return &NetworkOrderModel{
		BaseModel:        newBase(o.ID, o.CreatedAt, o.UpdatedAt),
		OrderNumber:      o.OrderNumber,
		BuyerCompanyID:   o.BuyerCompanyID,
		SellerCompanyID:  o.SellerCompanyID,
		Subtotal:         o.Subtotal,
		CommissionAmount: o.CommissionAmount,
		EscrowFee:        o.EscrowFee,
		Currency:         o.Currency,
		Status:           o.Status,
		CompletedAt:      o.CompletedAt,
	}
}

// NetworkPaymentModel is the capture record of an order payment.
// attempt_key is unique so a retried capture never creates a second row.
type NetworkPaymentModel struct {
	BaseModel
	NetworkOrderID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Provider       string               `gorm:"type:varchar(50);not null;index:idx_network_payments_provider_ref,priority:1"`
	Mode           escrow.PaymentMode   `gorm:"type:varchar(10);not null"`
	Status         escrow.PaymentStatus `gorm:"type:varchar(20);not null"`
	PayoutStatus   escrow.PayoutStatus  `gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency       string               `gorm:"type:varchar(3);not null"`
	AttemptKey     string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	ProviderRef    string               `gorm:"type:varchar(100);index:idx_network_payments_provider_ref,priority:2"`
	PaidAt         *time.Time
	ReleasedAt     *time.Time
}

// TableName returns the table name for GORM
func (NetworkPaymentModel) TableName() string {
	return "network_payments"
}

// ToDomain converts the model to a domain NetworkPayment
func (m *NetworkPaymentModel) ToDomain() *escrow.NetworkPayment {
	return &escrow.NetworkPayment{
		ID:             m.ID,
		NetworkOrderID: m.NetworkOrderID,
		Provider:       m.Provider,
		Mode:           m.Mode,
		Status:         m.Status,
		PayoutStatus:   m.PayoutStatus,
		Amount:         m.Amount,
		Currency:       m.Currency,
		AttemptKey:     m.AttemptKey,
		ProviderRef:    m.ProviderRef,
		PaidAt:         m.PaidAt,
		ReleasedAt:     m.ReleasedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// NetworkPaymentModelFromDomain creates a model from a domain NetworkPayment
func NetworkPaymentModelFromDomain(p *escrow.NetworkPayment) *NetworkPaymentModel {
	return &NetworkPaymentModel{
		BaseModel:      newBase(p.ID, p.CreatedAt, p.UpdatedAt),
		NetworkOrderID: p.NetworkOrderID,
		Provider:       p.Provider,
		Mode:           p.Mode,
		Status:         p.Status,
		PayoutStatus:   p.PayoutStatus,
		Amount:         p.Amount,
		Currency:       p.Currency,
		AttemptKey:     p.AttemptKey,
		ProviderRef:    p.ProviderRef,
		PaidAt:         p.PaidAt,
		ReleasedAt:     p.ReleasedAt,
	}
}

// SellerLedgerEntryModel is one immutable seller balance movement
type SellerLedgerEntryModel struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	SellerCompanyID uuid.UUID        `gorm:"type:uuid;not null;index"`
	EntryType       escrow.EntryType `gorm:"type:varchar(10);not null"`
	Amount          decimal.Decimal  `gorm:"type:decimal(18,4);not null;check:amount > 0"`
	Currency        string           `gorm:"type:varchar(3);not null"`
	NetworkOrderID  *uuid.UUID       `gorm:"type:uuid;index"`
	IdempotencyKey  string           `gorm:"type:varchar(120);not null;uniqueIndex"`
	Description     string           `gorm:"type:text"`
	CreatedAt       time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SellerLedgerEntryModel) TableName() string {
	return "seller_balance_ledger"
}

// SellerLedgerEntryModelFromDomain creates a model from a domain SellerLedgerEntry
func SellerLedgerEntryModelFromDomain(e *escrow.SellerLedgerEntry) *SellerLedgerEntryModel {
	return &SellerLedgerEntryModel{
		ID:              e.ID,
		SellerCompanyID: e.SellerCompanyID,
		EntryType:       e.Type,
		Amount:          e.Amount,
		Currency:        e.Currency,
		NetworkOrderID:  e.NetworkOrderID,
		IdempotencyKey:  e.IdempotencyKey,
		Description:     e.Description,
		CreatedAt:       e.CreatedAt,
	}
}

// CommissionLedgerModel is the platform's commission on one released order
type CommissionLedgerModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	NetworkOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null;check:amount > 0"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	IdempotencyKey string          `gorm:"type:varchar(120);not null;uniqueIndex"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CommissionLedgerModel) TableName() string {
	return "platform_commission_ledger"
}

// CommissionLedgerModelFromDomain creates a model from a domain CommissionLedgerEntry
func CommissionLedgerModelFromDomain(e *escrow.CommissionLedgerEntry) *CommissionLedgerModel {
	return &CommissionLedgerModel{
		ID:             e.ID,
		NetworkOrderID: e.NetworkOrderID,
		Amount:         e.Amount,
		Currency:       e.Currency,
		IdempotencyKey: e.IdempotencyKey,
		CreatedAt:      e.CreatedAt,
	}
}

// SellerBalanceModel is the denormalized balance cache. It is never read for decisions.
type SellerBalanceModel struct {
	SellerCompanyID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SellerBalanceModel) TableName() string {
	return "seller_balances"
}

// PaymentEventInboxModel is one payment provider webhook
type PaymentEventInboxModel struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ProviderEventID string            `gorm:"type:varchar(120);not null;uniqueIndex:idx_payment_inbox_event,priority:2"`
	Provider        string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_inbox_event,priority:1"`
	EventStatus     string            `gorm:"type:varchar(50)"`
	AttemptKey      string            `gorm:"type:varchar(100)"`
	ProviderRef     string            `gorm:"type:varchar(100)"`
	Amount          decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Currency        string            `gorm:"type:varchar(3)"`
	Payload         []byte            `gorm:"type:jsonb;not null"`
	State           shared.InboxState `gorm:"type:varchar(20);not null;index"`
	PaymentID       *uuid.UUID        `gorm:"type:uuid"`
	ErrorMessage    string            `gorm:"type:text"`
	ProcessedAt     *time.Time
	CreatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentEventInboxModel) TableName() string {
	return "payment_event_inbox"
}

// ToDomain converts the model to a domain PaymentEventInbox
func (m *PaymentEventInboxModel) ToDomain() *escrow.PaymentEventInbox {
	return &escrow.PaymentEventInbox{
		ID:              m.ID,
		ProviderEventID: m.ProviderEventID,
		Provider:        m.Provider,
		EventStatus:     m.EventStatus,
		AttemptKey:      m.AttemptKey,
		ProviderRef:     m.ProviderRef,
		Amount:          m.Amount,
		Currency:        m.Currency,
		Payload:         m.Payload,
		State:           m.State,
		PaymentID:       m.PaymentID,
		ErrorMessage:    m.ErrorMessage,
		ProcessedAt:     m.ProcessedAt,
		CreatedAt:       m.CreatedAt,
	}
}

// PaymentEventInboxModelFromDomain creates a model from a domain PaymentEventInbox
func PaymentEventInboxModelFromDomain(e *escrow.PaymentEventInbox) *PaymentEventInboxModel {
	return &PaymentEventInboxModel{
		ID:              e.ID,
		ProviderEventID: e.ProviderEventID,
		Provider:        e.Provider,
		EventStatus:     e.EventStatus,
		AttemptKey:      e.AttemptKey,
		ProviderRef:     e.ProviderRef,
		Amount:          e.Amount,
		Currency:        e.Currency,
		Payload:         e.Payload,
		State:           e.State,
		PaymentID:       e.PaymentID,
		ErrorMessage:    e.ErrorMessage,
		ProcessedAt:     e.ProcessedAt,
		CreatedAt:       e.CreatedAt,
	}
}
