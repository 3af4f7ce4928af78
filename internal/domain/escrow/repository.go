package escrow

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRepository persists network orders
type OrderRepository interface {
	Create(ctx context.Context, order *NetworkOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*NetworkOrder, error)
	// AdvanceStatus moves the order to next only if its current status is one of from.
	// It returns false when no row matched, which callers treat as a lost race or a stale event.
	AdvanceStatus(ctx context.Context, id uuid.UUID, from []OrderStatus, next OrderStatus, at time.Time) (bool, error)
}

// PaymentRepository persists network payments
type PaymentRepository interface {
	// CreateIfAbsent inserts the payment unless its attempt key already exists
	CreateIfAbsent(ctx context.Context, payment *NetworkPayment) (bool, error)
	FindByAttemptKey(ctx context.Context, attemptKey string) (*NetworkPayment, error)
	FindByProviderRef(ctx context.Context, provider, providerRef string) (*NetworkPayment, error)
	// FindLatestByOrder returns the order's PAID payment, or its most recent attempt when none is paid
	FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*NetworkPayment, error)
	// MarkPaid moves INITIATED to PAID; false when the payment was not INITIATED
	MarkPaid(ctx context.Context, id uuid.UUID, providerRef string, at time.Time) (bool, error)
	// MarkFailed moves INITIATED to FAILED; false when the payment was not INITIATED
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkReleased moves payout PENDING to RELEASED on a PAID escrow payment
	MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// LockedEscrow sums PAID, ESCROW, PENDING payments of the seller's orders
	LockedEscrow(ctx context.Context, sellerCompanyID uuid.UUID) (decimal.Decimal, error)
	// FindReleasableCompletedBefore returns order ids whose escrow is still pending
	// although the order completed before cutoff
	FindReleasableCompletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// SellerLedgerRepository persists seller balance movements
type SellerLedgerRepository interface {
	// InsertIfAbsent inserts the entry unless its idempotency key exists
	InsertIfAbsent(ctx context.Context, entry *SellerLedgerEntry) (bool, error)
	InsertCommissionIfAbsent(ctx context.Context, entry *CommissionLedgerEntry) (bool, error)
	// Sums returns total credits and debits for the seller
	Sums(ctx context.Context, sellerCompanyID uuid.UUID) (credit, debit decimal.Decimal, err error)
	// ApplyToBalanceCache adjusts the denormalized balance row. It is a read model only.
	ApplyToBalanceCache(ctx context.Context, sellerCompanyID uuid.UUID, delta decimal.Decimal, currency string) error
}

// PaymentInboxRepository persists payment webhook inbox rows
type PaymentInboxRepository interface {
	InsertIfAbsent(ctx context.Context, row *PaymentEventInbox) (bool, error)
	Finish(ctx context.Context, id uuid.UUID, state shared.InboxState, paymentID *uuid.UUID, errMsg string) error
}
