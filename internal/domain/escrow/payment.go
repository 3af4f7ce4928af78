package escrow

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMode says whether captured funds go straight to the seller or are held
type PaymentMode string

const (
	ModeDirect PaymentMode = "DIRECT"
	ModeEscrow PaymentMode = "ESCROW"
)

// IsValid checks if the mode is known
func (m PaymentMode) IsValid() bool {
	return m == ModeDirect || m == ModeEscrow
}

// PaymentStatus is the capture state of a network payment
type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "INITIATED"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
)

// PayoutStatus is the escrow release state, meaningful for PAID escrow payments only
type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "PENDING"
	PayoutReleased PayoutStatus = "RELEASED"
)

var (
	ErrInvalidPaymentMode = shared.NewDomainError("INVALID_PAYMENT_MODE", "Payment mode must be DIRECT or ESCROW")
	ErrMissingAttemptKey  = shared.NewDomainError("MISSING_ATTEMPT_KEY", "Payment capture requires an attempt key")
	ErrInvalidAmount      = shared.NewDomainError("INVALID_AMOUNT", "Amount must be greater than zero")
	ErrNotReleasable      = shared.NewDomainError("NOT_RELEASABLE", "Only paid escrow payments can be released")
	ErrPaymentNotPending  = shared.NewDomainError("PAYMENT_NOT_INITIATED", "Only initiated payments can be settled")
)

// NetworkPayment is the capture record of an order payment.
// Status and PayoutStatus only move forward.
type NetworkPayment struct {
	ID             uuid.UUID
	NetworkOrderID uuid.UUID
	Provider       string
	Mode           PaymentMode
	Status         PaymentStatus
	PayoutStatus   PayoutStatus
	Amount         decimal.Decimal
	Currency       string
	AttemptKey     string
	ProviderRef    string
	PaidAt         *time.Time
	ReleasedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewNetworkPayment creates an INITIATED payment for a capture attempt
func NewNetworkPayment(orderID uuid.UUID, provider string, mode PaymentMode, amount decimal.Decimal, currency, attemptKey string) (*NetworkPayment, error) {
	if !mode.IsValid() {
		return nil, ErrInvalidPaymentMode
	}
	if strings.TrimSpace(attemptKey) == "" {
		return nil, ErrMissingAttemptKey
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &NetworkPayment{
		ID:             uuid.New(),
		NetworkOrderID: orderID,
		Provider:       provider,
		Mode:           mode,
		Status:         PaymentInitiated,
		PayoutStatus:   PayoutPending,
		Amount:         amount,
		Currency:       currency,
		AttemptKey:     attemptKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanMarkPaid reports whether the capture can still succeed
func (p *NetworkPayment) CanMarkPaid() bool {
	return p.Status == PaymentInitiated
}

// IsReleased reports whether the escrow has already been paid out
func (p *NetworkPayment) IsReleased() bool {
	return p.PayoutStatus == PayoutReleased
}

// CheckReleasable returns nil when the payment is PAID, ESCROW and PENDING.
// Callers must test IsReleased first: re-release is a no-op, not an error.
func (p *NetworkPayment) CheckReleasable() error {
	if p.Mode != ModeEscrow || p.Status != PaymentPaid || p.PayoutStatus != PayoutPending {
		return ErrNotReleasable
	}
	return nil
}

// IsLocked reports whether the payment's funds sit in escrow
func (p *NetworkPayment) IsLocked() bool {
	return p.Mode == ModeEscrow && p.Status == PaymentPaid && p.PayoutStatus == PayoutPending
}
