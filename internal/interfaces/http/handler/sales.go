package handler

import (
	"github.com/erp/ledger/internal/application/sales"
	"github.com/erp/ledger/internal/domain/integration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImportOrdersRequest carries orders a marketplace pushed to the ledger
type ImportOrdersRequest struct {
	CompanyID   uuid.UUID                     `json:"company_id" binding:"required"`
	Marketplace string                        `json:"marketplace" binding:"required,max=30"`
	Orders      []integration.NormalizedOrder `json:"orders" binding:"required,min=1,max=500"`
}

// SalesHandler imports marketplace orders
type SalesHandler struct {
	BaseHandler
	sync *sales.OrderSyncService
}

// NewSalesHandler creates a new SalesHandler
func NewSalesHandler(sync *sales.OrderSyncService) *SalesHandler {
	return &SalesHandler{sync: sync}
}

// ImportOrders godoc
// @Summary      Import pushed marketplace orders
// @Description  New orders emit one sale.completed per line; known orders only refresh their status
// @Tags         sales
// @Accept       json
// @Produce      json
// @Router       /sales/orders/import [post]
func (h *SalesHandler) ImportOrders(c *gin.Context) {
	var req ImportOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.sync.Import(c.Request.Context(), req.CompanyID, integration.MarketplaceCode(req.Marketplace), req.Orders)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
