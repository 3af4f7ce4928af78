package handler

import (
	"encoding/json"
	"net/http"

	"github.com/erp/ledger/internal/application/escrow"
	"github.com/erp/ledger/internal/application/shipping"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
)

// ShipmentWebhookRequest is the carrier status callback body
type ShipmentWebhookRequest struct {
	CarrierCode    string          `json:"carrierCode" binding:"required,max=50"`
	CarrierEventID string          `json:"carrierEventId" binding:"required,max=100"`
	TrackingNumber string          `json:"trackingNumber" binding:"required,max=100"`
	Status         string          `json:"status" binding:"required,max=30"`
	Description    string          `json:"description" binding:"max=500"`
	RawPayload     json.RawMessage `json:"rawPayload"`
}

// PaymentWebhookRequest is the payment provider callback body
type PaymentWebhookRequest struct {
	ProviderEventID string          `json:"providerEventId" binding:"required,max=100"`
	Provider        string          `json:"provider" binding:"required,max=50"`
	Status          string          `json:"status" binding:"required,max=30"`
	AttemptKey      string          `json:"attemptKey" binding:"required_without=ProviderRef,max=100"`
	ProviderRef     string          `json:"providerRef" binding:"max=100"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" binding:"omitempty,currency"`
	RawPayload      json.RawMessage `json:"rawPayload"`
}

// WebhookResponse reports how an inbound event was handled
type WebhookResponse struct {
	Outcome string `json:"outcome" example:"processed"`
	Reason  string `json:"reason,omitempty"`
}

// WebhookHandler accepts carrier and payment provider callbacks
type WebhookHandler struct {
	BaseHandler
	inbox  *shipping.InboxService
	escrow *escrow.EscrowService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(inbox *shipping.InboxService, escrowService *escrow.EscrowService) *WebhookHandler {
	return &WebhookHandler{inbox: inbox, escrow: escrowService}
}

// Shipment godoc
// @Summary      Carrier shipment status webhook
// @Description  Duplicate deliveries of a carrier event id are acknowledged without effect
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Router       /webhooks/shipments [post]
func (h *WebhookHandler) Shipment(c *gin.Context) {
	var req ShipmentWebhookRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.BindError(c, err)
		return
	}

	outcome := h.inbox.Ingest(c.Request.Context(), shipping.IngestCommand{
		CarrierCode:    req.CarrierCode,
		CarrierEventID: req.CarrierEventID,
		TrackingNumber: req.TrackingNumber,
		Status:         req.Status,
		Description:    req.Description,
		Payload:        rawPayload(c, req.RawPayload),
	})
	h.respondOutcome(c, outcome)
}

// Payment godoc
// @Summary      Payment provider webhook
// @Description  Settles the payment the event refers to; duplicate deliveries are acknowledged without effect
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Router       /webhooks/payments [post]
func (h *WebhookHandler) Payment(c *gin.Context) {
	var req PaymentWebhookRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.BindError(c, err)
		return
	}

	outcome := h.escrow.ProcessPaymentEvent(c.Request.Context(), escrow.PaymentEventCommand{
		ProviderEventID: req.ProviderEventID,
		Provider:        req.Provider,
		Status:          req.Status,
		AttemptKey:      req.AttemptKey,
		ProviderRef:     req.ProviderRef,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Payload:         rawPayload(c, req.RawPayload),
	})
	h.respondOutcome(c, outcome)
}

// respondOutcome acknowledges everything a sender must not retry with 200.
// NotFound is acknowledged too: the event is recorded FAILED and a retry
// cannot make an unknown shipment or payment appear.
func (h *WebhookHandler) respondOutcome(c *gin.Context, outcome shared.Outcome) {
	switch outcome.Kind {
	case shared.OutcomeValidationFailed:
		code := dto.ErrCodeValidation
		if domainCode := shared.ErrorCode(outcome.Err); domainCode != "" {
			code = dto.NormalizeErrorCode(domainCode)
		}
		h.Error(c, http.StatusBadRequest, code, outcome.String())
	case shared.OutcomeTransientFailure:
		if outcome.Err != nil {
			_ = c.Error(outcome.Err)
		}
		h.InternalError(c, "Event could not be processed, retry later")
	default:
		h.Success(c, WebhookResponse{Outcome: string(outcome.Kind), Reason: outcome.Reason})
	}
}

// rawPayload keeps the sender's payload verbatim, falling back to the whole body
func rawPayload(c *gin.Context, raw json.RawMessage) []byte {
	if len(raw) > 0 {
		return raw
	}
	if body, ok := c.Get(gin.BodyBytesKey); ok {
		if b, ok := body.([]byte); ok {
			return b
		}
	}
	return nil
}
