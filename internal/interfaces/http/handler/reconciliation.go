package handler

import (
	"context"

	"github.com/erp/ledger/internal/application/reconciliation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceRunner is the invoice reconciliation worker as seen by operators
type InvoiceRunner interface {
	RunOnce(ctx context.Context) (reconciliation.Result, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// PayoutRunner is the overdue payout sweep as seen by operators
type PayoutRunner interface {
	RunOnce(ctx context.Context) (reconciliation.Result, error)
}

// MarkFailedRequest carries the operator's reason for giving up on a request
type MarkFailedRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ReconciliationHandler lets operators trigger reconciliation runs out of schedule
type ReconciliationHandler struct {
	BaseHandler
	invoices InvoiceRunner
	payouts  PayoutRunner
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(invoices InvoiceRunner, payouts PayoutRunner) *ReconciliationHandler {
	return &ReconciliationHandler{invoices: invoices, payouts: payouts}
}

// RunInvoices godoc
// @Summary      Run one invoice reconciliation batch now
// @Description  Safe to call while the scheduled worker runs; rows are claimed atomically
// @Tags         reconciliation
// @Produce      json
// @Router       /reconciliation/invoices/run [post]
func (h *ReconciliationHandler) RunInvoices(c *gin.Context) {
	result, err := h.invoices.RunOnce(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RunPayouts godoc
// @Summary      Release overdue escrow payouts now
// @Tags         reconciliation
// @Produce      json
// @Router       /reconciliation/payouts/run [post]
func (h *ReconciliationHandler) RunPayouts(c *gin.Context) {
	result, err := h.payouts.RunOnce(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// MarkFailed godoc
// @Summary      Escalate a stale external request to FAILED
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Param        id path string true "External request ID" format(uuid)
// @Router       /reconciliation/external-requests/{id}/fail [post]
func (h *ReconciliationHandler) MarkFailed(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}
	var req MarkFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.invoices.MarkFailed(c.Request.Context(), id, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"id": id, "status": "FAILED"})
}
