package handler

import (
	"net/http"
	"time"

	"github.com/erp/ledger/internal/application/shipping"
	"github.com/erp/ledger/internal/domain/shared"
	domain "github.com/erp/ledger/internal/domain/shipping"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateShipmentRequest registers a parcel for an order
type CreateShipmentRequest struct {
	CarrierCode    string `json:"carrier_code" binding:"required,max=50"`
	TrackingNumber string `json:"tracking_number" binding:"required,max=100"`
}

// FailedEventsQuery limits the FAILED inbox listing
type FailedEventsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ShipmentResponse is a parcel and how the request was applied
type ShipmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrderID        uuid.UUID  `json:"order_id"`
	CarrierCode    string     `json:"carrier_code"`
	TrackingNumber string     `json:"tracking_number"`
	Sequence       int        `json:"sequence"`
	Status         string     `json:"status"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	Outcome        string     `json:"outcome"`
}

// FailedEventResponse is a carrier event that could not be applied
type FailedEventResponse struct {
	ID             uuid.UUID `json:"id"`
	CarrierEventID string    `json:"carrier_event_id"`
	CarrierCode    string    `json:"carrier_code"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message"`
	CreatedAt      time.Time `json:"created_at"`
}

// ShipmentHandler manages parcels and FAILED carrier events
type ShipmentHandler struct {
	BaseHandler
	inbox *shipping.InboxService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(inbox *shipping.InboxService) *ShipmentHandler {
	return &ShipmentHandler{inbox: inbox}
}

// Create godoc
// @Summary      Register a parcel for a paid order
// @Description  Idempotent on (carrier_code, tracking_number); a repeat answers 200
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Param        id path string true "Network order ID" format(uuid)
// @Router       /escrow/orders/{id}/shipments [post]
func (h *ShipmentHandler) Create(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.inbox.CreateShipment(c.Request.Context(), orderID, req.CarrierCode, req.TrackingNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := toShipmentResponse(result.Shipment, result.Outcome)
	if result.Outcome.Kind == shared.OutcomeProcessed {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}

// ListFailed godoc
// @Summary      List carrier events that could not be applied
// @Tags         shipments
// @Produce      json
// @Param        limit query int false "Maximum rows" default(50) maximum(500)
// @Router       /shipments/failed-events [get]
func (h *ShipmentHandler) ListFailed(c *gin.Context) {
	query := FailedEventsQuery{Limit: 50}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	rows, err := h.inbox.ListFailed(c.Request.Context(), query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]FailedEventResponse, len(rows))
	for i, row := range rows {
		out[i] = FailedEventResponse{
			ID:             row.ID,
			CarrierEventID: row.CarrierEventID,
			CarrierCode:    row.CarrierCode,
			TrackingNumber: row.TrackingNumber,
			Status:         row.Status,
			ErrorMessage:   row.ErrorMessage,
			CreatedAt:      row.CreatedAt,
		}
	}
	h.Success(c, out)
}

// ReplayFailed godoc
// @Summary      Re-apply one FAILED carrier event
// @Description  A row that is no longer FAILED answers already_processed
// @Tags         shipments
// @Produce      json
// @Param        id path string true "Inbox row ID" format(uuid)
// @Router       /shipments/failed-events/{id}/replay [post]
func (h *ShipmentHandler) ReplayFailed(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid inbox row ID")
		return
	}

	outcome := h.inbox.ReplayFailed(c.Request.Context(), id)
	switch outcome.Kind {
	case shared.OutcomeNotFound:
		h.NotFound(c, outcome.String())
	case shared.OutcomeValidationFailed:
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeValidation, outcome.String())
	case shared.OutcomeTransientFailure:
		if outcome.Err != nil {
			_ = c.Error(outcome.Err)
		}
		h.InternalError(c, "Event could not be replayed, retry later")
	default:
		h.Success(c, WebhookResponse{Outcome: string(outcome.Kind), Reason: outcome.Reason})
	}
}

func toShipmentResponse(s *domain.Shipment, outcome shared.Outcome) ShipmentResponse {
	return ShipmentResponse{
		ID:             s.ID,
		OrderID:        s.NetworkOrderID,
		CarrierCode:    s.CarrierCode,
		TrackingNumber: s.TrackingNumber,
		Sequence:       s.Sequence,
		Status:         string(s.Status),
		DeliveredAt:    s.DeliveredAt,
		Outcome:        string(outcome.Kind),
	}
}
