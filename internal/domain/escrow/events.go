package escrow

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types raised by the escrow aggregate
const (
	EventOrderDelivered = "network_order.delivered"
	EventOrderCompleted = "network_order.completed"
	EventPayoutReleased = "payout.released"
	EventPaymentPaid    = "payment.paid"

	AggregateNetworkOrder = "NetworkOrder"
)

// OrderDeliveredEvent is raised when every shipment of an order is delivered
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// NewOrderDeliveredEvent creates an OrderDeliveredEvent
func NewOrderDeliveredEvent(order *NetworkOrder, at time.Time) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderDelivered, AggregateNetworkOrder, order.ID, order.SellerCompanyID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		DeliveredAt:     at,
	}
}

// OrderCompletedEvent is raised when the buyer confirms delivery
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	BuyerCompanyID uuid.UUID `json:"buyer_company_id"`
	CompletedAt    time.Time `json:"completed_at"`
}

// NewOrderCompletedEvent creates an OrderCompletedEvent
func NewOrderCompletedEvent(order *NetworkOrder, at time.Time) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderCompleted, AggregateNetworkOrder, order.ID, order.SellerCompanyID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		BuyerCompanyID:  order.BuyerCompanyID,
		CompletedAt:     at,
	}
}

// PayoutReleasedEvent is raised once per order when escrow funds reach the seller
type PayoutReleasedEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID       `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	SellerCompanyID  uuid.UUID       `json:"seller_company_id"`
	Gross            decimal.Decimal `json:"gross"`
	SellerNet        decimal.Decimal `json:"seller_net"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	EscrowFee        decimal.Decimal `json:"escrow_fee"`
	Currency         string          `json:"currency"`
	TriggeredBy      string          `json:"triggered_by"`
}

// NewPayoutReleasedEvent creates a PayoutReleasedEvent
func NewPayoutReleasedEvent(order *NetworkOrder, triggeredBy string) *PayoutReleasedEvent {
	return &PayoutReleasedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventPayoutReleased, AggregateNetworkOrder, order.ID, order.SellerCompanyID),
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		SellerCompanyID:  order.SellerCompanyID,
		Gross:            order.Subtotal,
		SellerNet:        order.SellerNet(),
		CommissionAmount: order.CommissionAmount,
		EscrowFee:        order.EscrowFee,
		Currency:         order.Currency,
		TriggeredBy:      triggeredBy,
	}
}

// PaymentPaidEvent is raised when a payment attempt settles. For ESCROW
// payments the amount is held for the seller until release.
type PaymentPaidEvent struct {
	shared.BaseDomainEvent
	PaymentID       uuid.UUID       `json:"payment_id"`
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	SellerCompanyID uuid.UUID       `json:"seller_company_id"`
	Mode            PaymentMode     `json:"mode"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ProviderRef     string          `json:"provider_ref,omitempty"`
}

// NewPaymentPaidEvent creates a PaymentPaidEvent
func NewPaymentPaidEvent(order *NetworkOrder, payment *NetworkPayment) *PaymentPaidEvent {
	return &PaymentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentPaid, AggregateNetworkOrder, order.ID, order.SellerCompanyID),
		PaymentID:       payment.ID,
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SellerCompanyID: order.SellerCompanyID,
		Mode:            payment.Mode,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		ProviderRef:     payment.ProviderRef,
	}
}
