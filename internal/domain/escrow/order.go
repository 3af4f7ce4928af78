package escrow

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle of a B2B network order
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderPaid           OrderStatus = "PAID"
	OrderShipped        OrderStatus = "SHIPPED"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCompleted      OrderStatus = "COMPLETED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

var orderRank = map[OrderStatus]int{
	OrderPendingPayment: 0,
	OrderPaid:           1,
	OrderShipped:        2,
	OrderDelivered:      3,
	OrderCompleted:      4,
}

// IsValid checks if the status is known
func (s OrderStatus) IsValid() bool {
	_, ok := orderRank[s]
	return ok || s == OrderCancelled
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// Cancellation is only possible before payment.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if next == OrderCancelled {
		return s == OrderPendingPayment
	}
	from, ok1 := orderRank[s]
	to, ok2 := orderRank[next]
	return ok1 && ok2 && to > from
}

var (
	ErrOrderNotDelivered = shared.NewDomainError("ORDER_NOT_DELIVERED", "All shipments must be delivered before the buyer can confirm")
	ErrNotOrderBuyer     = shared.NewDomainError("NOT_ORDER_BUYER", "Only the buyer can confirm delivery")
	ErrFeesExceedTotal   = shared.NewDomainError("FEES_EXCEED_SUBTOTAL", "Commission plus escrow fee cannot exceed the order subtotal")
)

// NetworkOrder is a buyer-seller order placed through the B2B network
type NetworkOrder struct {
	ID               uuid.UUID
	OrderNumber      string
	BuyerCompanyID   uuid.UUID
	SellerCompanyID  uuid.UUID
	Subtotal         decimal.Decimal
	CommissionAmount decimal.Decimal
	EscrowFee        decimal.Decimal
	Currency         string
	Status           OrderStatus
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SellerNet is what the seller is owed once escrow releases
func (o *NetworkOrder) SellerNet() decimal.Decimal {
	return o.Subtotal.Sub(o.PlatformFees())
}

// PlatformFees is the commission plus the escrow fee kept by the platform
func (o *NetworkOrder) PlatformFees() decimal.Decimal {
	return o.CommissionAmount.Add(o.EscrowFee)
}

// CheckAmounts requires a positive subtotal, non-negative fees and a
// seller net that is not negative.
func (o *NetworkOrder) CheckAmounts() error {
	if !o.Subtotal.IsPositive() {
		return ErrInvalidAmount
	}
	if o.CommissionAmount.IsNegative() || o.EscrowFee.IsNegative() {
		return fmt.Errorf("%w: commission and escrow fee cannot be negative", shared.ErrInvalidInput)
	}
	if o.SellerNet().IsNegative() {
		return fmt.Errorf("%w: %s + %s > %s", ErrFeesExceedTotal, o.CommissionAmount, o.EscrowFee, o.Subtotal)
	}
	return nil
}
