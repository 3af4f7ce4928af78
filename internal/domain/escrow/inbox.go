package escrow

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tolerance for comparing a provider-reported amount with the captured amount
var PaymentAmountTolerance = decimal.RequireFromString("0.01")

// PaymentEventInbox records one payment provider webhook, keyed by the provider's event id
type PaymentEventInbox struct {
	ID              uuid.UUID
	ProviderEventID string
	Provider        string
	EventStatus     string
	AttemptKey      string
	ProviderRef     string
	Amount          decimal.Decimal
	Currency        string
	Payload         []byte
	State           shared.InboxState
	PaymentID       *uuid.UUID
	ErrorMessage    string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}

// IsSuccessStatus reports whether the provider status means funds were captured
func IsSuccessStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS", "SUCCEEDED", "PAID", "CAPTURED":
		return true
	}
	return false
}

// IsFailureStatus reports whether the provider status means the attempt failed for good
func IsFailureStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "FAILURE", "FAILED", "DECLINED", "ERROR", "CANCELLED", "CANCELED":
		return true
	}
	return false
}

var (
	ErrInvalidPaymentEvent   = shared.NewDomainError("INVALID_PAYMENT_EVENT", "Provider event id, provider and a payment reference are required")
	ErrPaymentAmountMismatch = shared.NewDomainError("PAYMENT_AMOUNT_MISMATCH", "Reported amount differs from the captured amount")
)

// NewPaymentEventInbox validates the identifying fields and creates a RECEIVED row
func NewPaymentEventInbox(providerEventID, provider, status, attemptKey, providerRef string, amount decimal.Decimal, currency string, payload []byte) (*PaymentEventInbox, error) {
	providerEventID = strings.TrimSpace(providerEventID)
	provider = strings.ToUpper(strings.TrimSpace(provider))
	attemptKey = strings.TrimSpace(attemptKey)
	providerRef = strings.TrimSpace(providerRef)
	if providerEventID == "" || provider == "" || (attemptKey == "" && providerRef == "") {
		return nil, ErrInvalidPaymentEvent
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return &PaymentEventInbox{
		ID:              uuid.New(),
		ProviderEventID: providerEventID,
		Provider:        provider,
		EventStatus:     strings.TrimSpace(status),
		AttemptKey:      attemptKey,
		ProviderRef:     providerRef,
		Amount:          amount,
		Currency:        strings.ToUpper(strings.TrimSpace(currency)),
		Payload:         payload,
		State:           shared.InboxReceived,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// CheckSettlement compares the reported amount and currency with the captured payment
func (e *PaymentEventInbox) CheckSettlement(p *NetworkPayment) error {
	if e.Amount.Sub(p.Amount).Abs().GreaterThan(PaymentAmountTolerance) {
		return fmt.Errorf("%w: expected %s, got %s", ErrPaymentAmountMismatch, p.Amount, e.Amount)
	}
	if e.Currency != "" && e.Currency != p.Currency {
		return fmt.Errorf("%w: expected %s, got %s", valueobject.ErrCurrencyMismatch, p.Currency, e.Currency)
	}
	return nil
}
