package handler

import (
	"net/http"
	"time"

	"github.com/erp/ledger/internal/application/escrow"
	domain "github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest opens a network order between two companies
type CreateOrderRequest struct {
	OrderNumber      string          `json:"order_number" binding:"required,max=50"`
	BuyerCompanyID   uuid.UUID       `json:"buyer_company_id" binding:"required"`
	SellerCompanyID  uuid.UUID       `json:"seller_company_id" binding:"required,nefield=BuyerCompanyID"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	EscrowFee        decimal.Decimal `json:"escrow_fee"`
	Currency         string          `json:"currency" binding:"required,currency"`
}

// CaptureRequest starts a payment attempt for an order
type CaptureRequest struct {
	OrderID     uuid.UUID       `json:"order_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"required,currency"`
	Mode        string          `json:"mode" binding:"required,oneof=DIRECT ESCROW"`
	Provider    string          `json:"provider" binding:"required,max=50"`
	AttemptKey  string          `json:"attempt_key" binding:"required,max=100"`
	ProviderRef string          `json:"provider_ref" binding:"max=100"`
}

// FailPaymentRequest closes a payment attempt the provider declined
type FailPaymentRequest struct {
	AttemptKey string `json:"attempt_key" binding:"required,max=100"`
}

// ConfirmDeliveryRequest identifies the confirming buyer
type ConfirmDeliveryRequest struct {
	BuyerCompanyID uuid.UUID `json:"buyer_company_id" binding:"required"`
}

// OrderResponse is a network order
type OrderResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	BuyerCompanyID   uuid.UUID       `json:"buyer_company_id"`
	SellerCompanyID  uuid.UUID       `json:"seller_company_id"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	EscrowFee        decimal.Decimal `json:"escrow_fee"`
	SellerNet        decimal.Decimal `json:"seller_net"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentResponse is a payment attempt and how the request was applied
type PaymentResponse struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	Provider     string          `json:"provider"`
	Mode         string          `json:"mode"`
	Status       string          `json:"status"`
	PayoutStatus string          `json:"payout_status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	AttemptKey   string          `json:"attempt_key"`
	ProviderRef  string          `json:"provider_ref,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	ReleasedAt   *time.Time      `json:"released_at,omitempty"`
	Outcome      string          `json:"outcome"`
}

// ReleaseResponse is the seller position after a release
type ReleaseResponse struct {
	Outcome string          `json:"outcome"`
	Balance *domain.Balance `json:"balance"`
}

// EscrowHandler serves network orders, payments and seller balances
type EscrowHandler struct {
	BaseHandler
	escrow *escrow.EscrowService
}

// NewEscrowHandler creates a new EscrowHandler
func NewEscrowHandler(escrowService *escrow.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrow: escrowService}
}

// CreateOrder godoc
// @Summary      Open a network order
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Router       /escrow/orders [post]
func (h *EscrowHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.escrow.CreateOrder(c.Request.Context(), escrow.CreateOrderCommand{
		OrderNumber:      req.OrderNumber,
		BuyerCompanyID:   req.BuyerCompanyID,
		SellerCompanyID:  req.SellerCompanyID,
		Subtotal:         req.Subtotal,
		CommissionAmount: req.CommissionAmount,
		EscrowFee:        req.EscrowFee,
		Currency:         req.Currency,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toOrderResponse(order))
}

// Capture godoc
// @Summary      Start a payment attempt
// @Description  Idempotent on attempt_key; a repeated key answers 200 with the existing attempt
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Router       /escrow/payments [post]
func (h *EscrowHandler) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.escrow.Capture(c.Request.Context(), escrow.CaptureCommand{
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Mode:        domain.PaymentMode(req.Mode),
		Provider:    req.Provider,
		AttemptKey:  req.AttemptKey,
		ProviderRef: req.ProviderRef,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := toPaymentResponse(result.Payment, result.Outcome)
	if result.Outcome.Kind == shared.OutcomeProcessed {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}

// FailPayment godoc
// @Summary      Close an INITIATED payment attempt as FAILED
// @Description  Repeating the call answers already_processed; a settled payment answers 422
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Router       /escrow/payments/fail [post]
func (h *EscrowHandler) FailPayment(c *gin.Context) {
	var req FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.escrow.MarkFailed(c.Request.Context(), req.AttemptKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(result.Payment, result.Outcome))
}

// Release godoc
// @Summary      Release escrowed funds to the seller
// @Description  Credits the seller net exactly once; later calls answer already_processed
// @Tags         escrow
// @Produce      json
// @Param        id path string true "Network order ID" format(uuid)
// @Router       /escrow/orders/{id}/release [post]
func (h *EscrowHandler) Release(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	result, err := h.escrow.Release(c.Request.Context(), orderID, escrow.TriggeredByOperator)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReleaseResponse{Outcome: string(result.Outcome.Kind), Balance: result.Balance})
}

// ConfirmDelivery godoc
// @Summary      Buyer confirms a delivered order
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Param        id path string true "Network order ID" format(uuid)
// @Router       /escrow/orders/{id}/confirm-delivery [post]
func (h *EscrowHandler) ConfirmDelivery(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	var req ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	outcome := h.escrow.ConfirmDelivery(c.Request.Context(), orderID, req.BuyerCompanyID)
	if !outcome.IsSuccess() {
		if outcome.Err == nil {
			h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, outcome.String())
			return
		}
		h.HandleError(c, outcome.Err)
		return
	}
	h.Success(c, WebhookResponse{Outcome: string(outcome.Kind), Reason: outcome.Reason})
}

// SellerBalance godoc
// @Summary      Withdrawable and locked amounts of a seller
// @Tags         escrow
// @Produce      json
// @Param        id path string true "Seller company ID" format(uuid)
// @Router       /escrow/sellers/{id}/balance [get]
func (h *EscrowHandler) SellerBalance(c *gin.Context) {
	sellerID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid seller ID")
		return
	}

	balance, err := h.escrow.ComputeBalance(c.Request.Context(), sellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

func toOrderResponse(o *domain.NetworkOrder) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		BuyerCompanyID:   o.BuyerCompanyID,
		SellerCompanyID:  o.SellerCompanyID,
		Subtotal:         o.Subtotal,
		CommissionAmount: o.CommissionAmount,
		EscrowFee:        o.EscrowFee,
		SellerNet:        o.SellerNet(),
		Currency:         o.Currency,
		Status:           string(o.Status),
		CompletedAt:      o.CompletedAt,
		CreatedAt:        o.CreatedAt,
	}
}

func toPaymentResponse(p *domain.NetworkPayment, outcome shared.Outcome) PaymentResponse {
	return PaymentResponse{
		ID:           p.ID,
		OrderID:      p.NetworkOrderID,
		Provider:     p.Provider,
		Mode:         string(p.Mode),
		Status:       string(p.Status),
		PayoutStatus: string(p.PayoutStatus),
		Amount:       p.Amount,
		Currency:     p.Currency,
		AttemptKey:   p.AttemptKey,
		ProviderRef:  p.ProviderRef,
		PaidAt:       p.PaidAt,
		ReleasedAt:   p.ReleasedAt,
		Outcome:      string(outcome.Kind),
	}
}
