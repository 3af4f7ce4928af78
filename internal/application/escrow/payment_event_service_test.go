package escrow

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *escrowFixture) initiatedPayment(t *testing.T, orderNumber string) {
	t.Helper()
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, CreateOrderCommand{
		OrderNumber: orderNumber, BuyerCompanyID: f.buyer, SellerCompanyID: f.seller,
		Subtotal: decimal.NewFromInt(500), Currency: "TRY",
	})
	require.NoError(t, err)
	_, err = f.svc.Capture(ctx, CaptureCommand{
		OrderID: order.ID, Amount: decimal.NewFromInt(500), Currency: "TRY",
		Mode: escrow.ModeEscrow, Provider: "iyzico", AttemptKey: "attempt-" + orderNumber,
		ProviderRef: "ref-" + orderNumber,
	})
	require.NoError(t, err)
}

func paymentEvent(eventID, attemptKey, status, amount string) PaymentEventCommand {
	return PaymentEventCommand{
		ProviderEventID: eventID,
		Provider:        "iyzico",
		Status:          status,
		AttemptKey:      attemptKey,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "TRY",
		Payload:         []byte(`{"status":"` + status + `"}`),
	}
}

func inboxState(t *testing.T, f *escrowFixture, eventID string) shared.InboxState {
	t.Helper()
	var row models.PaymentEventInboxModel
	require.NoError(t, f.store.DB.First(&row, "provider_event_id = ?", eventID).Error)
	return row.State
}

func TestProcessPaymentEvent_SettlesOnceAcrossRedeliveries(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.initiatedPayment(t, "NW-P1")

	first := f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-1", "attempt-NW-P1", "SUCCESS", "500.00"))
	second := f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-1", "attempt-NW-P1", "SUCCESS", "500.00"))

	assert.Equal(t, shared.OutcomeProcessed, first.Kind)
	assert.Equal(t, shared.OutcomeAlreadyProcessed, second.Kind)
	assert.Equal(t, shared.InboxProcessed, inboxState(t, f, "pe-1"))
	assert.Equal(t, int64(1), f.store.Count(t, &models.PaymentEventInboxModel{}, ""))

	var payment models.NetworkPaymentModel
	require.NoError(t, f.store.DB.First(&payment, "attempt_key = ?", "attempt-NW-P1").Error)
	assert.Equal(t, escrow.PaymentPaid, payment.Status)

	var order models.NetworkOrderModel
	require.NoError(t, f.store.DB.First(&order, "id = ?", payment.NetworkOrderID).Error)
	assert.Equal(t, escrow.OrderPaid, order.Status)
}

func TestProcessPaymentEvent_NewEventForPaidPaymentIsAlreadyProcessed(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.initiatedPayment(t, "NW-P2")

	require.Equal(t, shared.OutcomeProcessed, f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-2a", "attempt-NW-P2", "SUCCESS", "500")).Kind)
	outcome := f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-2b", "attempt-NW-P2", "CAPTURED", "500"))
	assert.Equal(t, shared.OutcomeAlreadyProcessed, outcome.Kind)
}

func TestProcessPaymentEvent_NonSuccessStatusIsIgnored(t *testing.T) {
	f := newEscrowFixture(t)
	f.initiatedPayment(t, "NW-P3")

	outcome := f.svc.ProcessPaymentEvent(context.Background(), paymentEvent("pe-3", "attempt-NW-P3", "PENDING", "500"))
	assert.Equal(t, shared.OutcomeIgnored, outcome.Kind)
	assert.Equal(t, shared.InboxIgnored, inboxState(t, f, "pe-3"))
}

func TestProcessPaymentEvent_FailureStatusFailsThePayment(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.initiatedPayment(t, "NW-P7")

	outcome := f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-7", "attempt-NW-P7", "DECLINED", "0"))
	assert.Equal(t, shared.OutcomeProcessed, outcome.Kind, outcome.String())
	assert.Equal(t, shared.InboxProcessed, inboxState(t, f, "pe-7"))

	var payment models.NetworkPaymentModel
	require.NoError(t, f.store.DB.First(&payment, "attempt_key = ?", "attempt-NW-P7").Error)
	assert.Equal(t, escrow.PaymentFailed, payment.Status)

	again := f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-7b", "attempt-NW-P7", "FAILED", "0"))
	assert.Equal(t, shared.OutcomeAlreadyProcessed, again.Kind)

	late := f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-7c", "attempt-NW-P7", "SUCCESS", "500"))
	assert.Equal(t, shared.OutcomeValidationFailed, late.Kind, "a failed attempt never becomes paid")
	assert.Empty(t, f.store.OutboxEvents(t, escrow.EventPaymentPaid))
}

func TestProcessPaymentEvent_FailureAfterSettlementIsIgnored(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.initiatedPayment(t, "NW-P8")

	require.Equal(t, shared.OutcomeProcessed, f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-8a", "attempt-NW-P8", "SUCCESS", "500")).Kind)
	outcome := f.svc.ProcessPaymentEvent(ctx, paymentEvent("pe-8b", "attempt-NW-P8", "FAILURE", "0"))
	assert.Equal(t, shared.OutcomeIgnored, outcome.Kind)
	assert.Equal(t, shared.InboxIgnored, inboxState(t, f, "pe-8b"))

	var payment models.NetworkPaymentModel
	require.NoError(t, f.store.DB.First(&payment, "attempt_key = ?", "attempt-NW-P8").Error)
	assert.Equal(t, escrow.PaymentPaid, payment.Status)
	assert.Len(t, f.store.OutboxEvents(t, escrow.EventPaymentPaid), 1)
}

func TestProcessPaymentEvent_AmountMismatchFails(t *testing.T) {
	f := newEscrowFixture(t)
	f.initiatedPayment(t, "NW-P4")

	outcome := f.svc.ProcessPaymentEvent(context.Background(), paymentEvent("pe-4", "attempt-NW-P4", "SUCCESS", "499.50"))
	assert.Equal(t, shared.OutcomeValidationFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, escrow.ErrPaymentAmountMismatch)
	assert.Equal(t, shared.InboxFailed, inboxState(t, f, "pe-4"))

	var payment models.NetworkPaymentModel
	require.NoError(t, f.store.DB.First(&payment, "attempt_key = ?", "attempt-NW-P4").Error)
	assert.Equal(t, escrow.PaymentInitiated, payment.Status)
}

func TestProcessPaymentEvent_UnknownPaymentIsNotFound(t *testing.T) {
	f := newEscrowFixture(t)

	outcome := f.svc.ProcessPaymentEvent(context.Background(), paymentEvent("pe-5", "attempt-missing", "SUCCESS", "1"))
	assert.Equal(t, shared.OutcomeNotFound, outcome.Kind)
	assert.Equal(t, shared.InboxFailed, inboxState(t, f, "pe-5"))
}

func TestProcessPaymentEvent_RejectsMalformedEvents(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	noID := paymentEvent("", "attempt-x", "SUCCESS", "1")
	assert.Equal(t, shared.OutcomeValidationFailed, f.svc.ProcessPaymentEvent(ctx, noID).Kind)

	badCurrency := paymentEvent("pe-6", "attempt-x", "SUCCESS", "1")
	badCurrency.Currency = "??"
	assert.Equal(t, shared.OutcomeValidationFailed, f.svc.ProcessPaymentEvent(ctx, badCurrency).Kind)

	assert.Equal(t, int64(0), f.store.Count(t, &models.PaymentEventInboxModel{}, ""))
}
