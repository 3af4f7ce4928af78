package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/ledger/internal/application/escrow"
	"github.com/erp/ledger/internal/application/shipping"
	domainescrow "github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type webhookFixture struct {
	router *gin.Engine
	store  *testutil.LedgerStore
	escrow *escrow.EscrowService
	inbox  *shipping.InboxService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	store := testutil.NewLedgerStore(t)
	escrowService := escrow.NewEscrowService(store.Scope, nil, zap.NewNop())
	inbox := shipping.NewInboxService(store.Scope, nil, zap.NewNop())
	h := NewWebhookHandler(inbox, escrowService)

	r := gin.New()
	r.POST("/webhooks/shipments", h.Shipment)
	r.POST("/webhooks/payments", h.Payment)
	return &webhookFixture{router: r, store: store, escrow: escrowService, inbox: inbox}
}

func (f *webhookFixture) post(t *testing.T, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, testutil.ToJSONReader(t, body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// capturedOrder creates an escrow order of 500 with an INITIATED payment under attemptKey
func (f *webhookFixture) capturedOrder(t *testing.T, number, attemptKey string) *domainescrow.NetworkOrder {
	t.Helper()
	ctx := context.Background()
	order, err := f.escrow.CreateOrder(ctx, escrow.CreateOrderCommand{
		OrderNumber:     number,
		BuyerCompanyID:  uuid.New(),
		SellerCompanyID: uuid.New(),
		Subtotal:        decimal.NewFromInt(500),
		Currency:        "TRY",
	})
	require.NoError(t, err)
	_, err = f.escrow.Capture(ctx, escrow.CaptureCommand{
		OrderID:    order.ID,
		Amount:     decimal.NewFromInt(500),
		Currency:   "TRY",
		Mode:       domainescrow.ModeEscrow,
		Provider:   "iyzico",
		AttemptKey: attemptKey,
	})
	require.NoError(t, err)
	return order
}

func outcomeOf(t *testing.T, resp map[string]any) string {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "expected data object in %v", resp)
	return data["outcome"].(string)
}

func TestWebhookHandler_Payment(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.capturedOrder(t, "NW-WH-1", "attempt-wh-1")

	body := gin.H{
		"providerEventId": "evt-1",
		"provider":        "iyzico",
		"status":          "SUCCESS",
		"attemptKey":      "attempt-wh-1",
		"providerRef":     "iyz-123",
		"amount":          "500",
		"currency":        "TRY",
	}

	w, resp := f.post(t, "/webhooks/payments", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(shared.OutcomeProcessed), outcomeOf(t, resp))

	var payment models.NetworkPaymentModel
	require.NoError(t, f.store.DB.First(&payment, "network_order_id = ?", order.ID).Error)
	assert.Equal(t, domainescrow.PaymentPaid, payment.Status)

	t.Run("redelivery is acknowledged", func(t *testing.T) {
		w, resp := f.post(t, "/webhooks/payments", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(shared.OutcomeAlreadyProcessed), outcomeOf(t, resp))
	})

	t.Run("failure after settlement is ignored", func(t *testing.T) {
		w, resp := f.post(t, "/webhooks/payments", gin.H{
			"providerEventId": "evt-2",
			"provider":        "iyzico",
			"status":          "FAILURE",
			"attemptKey":      "attempt-wh-1",
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(shared.OutcomeIgnored), outcomeOf(t, resp))
	})

	t.Run("amount mismatch is rejected", func(t *testing.T) {
		f.capturedOrder(t, "NW-WH-2", "attempt-wh-2")
		w, resp := f.post(t, "/webhooks/payments", gin.H{
			"providerEventId": "evt-3",
			"provider":        "iyzico",
			"status":          "SUCCESS",
			"attemptKey":      "attempt-wh-2",
			"amount":          "499.99",
			"currency":        "TRY",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "PAYMENT_AMOUNT_MISMATCH", resp["error"].(map[string]any)["code"])
	})

	t.Run("missing reference fails binding", func(t *testing.T) {
		w, _ := f.post(t, "/webhooks/payments", gin.H{
			"providerEventId": "evt-4",
			"provider":        "iyzico",
			"status":          "SUCCESS",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWebhookHandler_Shipment(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	order := f.capturedOrder(t, "NW-WH-3", "attempt-wh-3")
	_, err := f.escrow.MarkPaid(ctx, "attempt-wh-3", "ref-wh-3")
	require.NoError(t, err)
	_, err = f.inbox.CreateShipment(ctx, order.ID, "ARAS", "TRK-WH-1")
	require.NoError(t, err)

	event := gin.H{
		"carrierCode":    "ARAS",
		"carrierEventId": "aras-1",
		"trackingNumber": "TRK-WH-1",
		"status":         "IN_TRANSIT",
		"rawPayload":     gin.H{"hub": "Istanbul"},
	}

	w, resp := f.post(t, "/webhooks/shipments", event)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(shared.OutcomeProcessed), outcomeOf(t, resp))

	var row models.ShipmentEventInboxModel
	require.NoError(t, f.store.DB.First(&row, "carrier_event_id = ?", "aras-1").Error)
	assert.JSONEq(t, `{"hub":"Istanbul"}`, string(row.Payload))

	tests := []struct {
		name           string
		body           gin.H
		expectedStatus int
		expectedResult string
	}{
		{
			name:           "redelivery",
			body:           event,
			expectedStatus: http.StatusOK,
			expectedResult: string(shared.OutcomeAlreadyProcessed),
		},
		{
			name: "backward transition",
			body: gin.H{
				"carrierCode": "ARAS", "carrierEventId": "aras-2",
				"trackingNumber": "TRK-WH-1", "status": "CREATED",
			},
			expectedStatus: http.StatusOK,
			expectedResult: string(shared.OutcomeIgnored),
		},
		{
			name: "unknown shipment",
			body: gin.H{
				"carrierCode": "ARAS", "carrierEventId": "aras-3",
				"trackingNumber": "TRK-NOPE", "status": "DELIVERED",
			},
			expectedStatus: http.StatusOK,
			expectedResult: string(shared.OutcomeNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := f.post(t, "/webhooks/shipments", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedResult, outcomeOf(t, resp))
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		w, resp := f.post(t, "/webhooks/shipments", gin.H{
			"carrierCode": "ARAS", "carrierEventId": "aras-4",
			"trackingNumber": "TRK-WH-1", "status": "TELEPORTED",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNKNOWN_SHIPMENT_STATUS", resp["error"].(map[string]any)["code"])
	})

	t.Run("missing event id", func(t *testing.T) {
		w, resp := f.post(t, "/webhooks/shipments", gin.H{
			"carrierCode": "ARAS", "trackingNumber": "TRK-WH-1", "status": "DELIVERED",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp["success"].(bool))
	})
}

func TestWebhookHandler_TransientFailureIs500(t *testing.T) {
	h := &WebhookHandler{}
	c, w := newTestContext(t)

	h.respondOutcome(c, shared.Failed(errors.New("connection reset")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, c.Errors, 1)
}
