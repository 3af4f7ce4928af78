package handler

import (
	"time"

	"github.com/erp/ledger/internal/application/accounting"
	domain "github.com/erp/ledger/internal/domain/accounting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalLineRequest is one line of a manual slip
type JournalLineRequest struct {
	AccountCode  string          `json:"account_code" binding:"required,max=50"`
	Side         string          `json:"side" binding:"required,oneof=DEBIT CREDIT"`
	Amount       decimal.Decimal `json:"amount"`
	DocumentType string          `json:"document_type" binding:"max=50"`
	DocumentNo   string          `json:"document_no" binding:"max=100"`
}

// PostEntryRequest is a manual slip
type PostEntryRequest struct {
	CompanyID   uuid.UUID            `json:"company_id" binding:"required"`
	Date        *time.Time           `json:"date"`
	Description string               `json:"description" binding:"max=500"`
	SourceType  string               `json:"source_type" binding:"required,max=50"`
	SourceID    string               `json:"source_id" binding:"required,max=100"`
	Branch      string               `json:"branch" binding:"max=50"`
	Lines       []JournalLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// StornoRequest carries the reason recorded on the reversing slip
type StornoRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CheckReceivedRequest records a customer check
type CheckReceivedRequest struct {
	CompanyID uuid.UUID       `json:"company_id" binding:"required"`
	CheckID   string          `json:"check_id" binding:"required,max=100"`
	CheckNo   string          `json:"check_no" binding:"required,max=100"`
	Amount    decimal.Decimal `json:"amount"`
	Date      *time.Time      `json:"date"`
}

// JournalLineResponse is one persisted line
type JournalLineResponse struct {
	LineNo       int             `json:"line_no"`
	AccountCode  string          `json:"account_code"`
	Side         string          `json:"side"`
	Amount       decimal.Decimal `json:"amount"`
	DocumentType string          `json:"document_type,omitempty"`
	DocumentNo   string          `json:"document_no,omitempty"`
}

// JournalEntryResponse is a persisted slip
type JournalEntryResponse struct {
	ID          uuid.UUID             `json:"id"`
	CompanyID   uuid.UUID             `json:"company_id"`
	Date        time.Time             `json:"date"`
	Description string                `json:"description"`
	SourceType  string                `json:"source_type"`
	SourceID    string                `json:"source_id"`
	Branch      string                `json:"branch,omitempty"`
	ReversalOf  *uuid.UUID            `json:"reversal_of,omitempty"`
	ReversedBy  *uuid.UUID            `json:"reversed_by,omitempty"`
	Lines       []JournalLineResponse `json:"lines"`
	CreatedAt   time.Time             `json:"created_at"`
}

// LedgerHandler serves the posting engine
type LedgerHandler struct {
	BaseHandler
	posting *accounting.PostingService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(posting *accounting.PostingService) *LedgerHandler {
	return &LedgerHandler{posting: posting}
}

// PostEntry godoc
// @Summary      Post a balanced journal entry
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Router       /ledger/entries [post]
func (h *LedgerHandler) PostEntry(c *gin.Context) {
	var req PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	cmd := accounting.PostCommand{
		CompanyID:   req.CompanyID,
		Date:        time.Now().UTC(),
		Description: req.Description,
		SourceType:  req.SourceType,
		SourceID:    req.SourceID,
		Branch:      req.Branch,
		Lines:       make([]domain.JournalLine, len(req.Lines)),
	}
	if req.Date != nil {
		cmd.Date = req.Date.UTC()
	}
	for i, l := range req.Lines {
		cmd.Lines[i] = domain.JournalLine{
			AccountCode:  l.AccountCode,
			Side:         domain.Side(l.Side),
			Amount:       l.Amount,
			DocumentType: l.DocumentType,
			DocumentNo:   l.DocumentNo,
		}
	}

	entry, err := h.posting.Post(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toJournalEntryResponse(entry))
}

// CheckReceived godoc
// @Summary      Post a received customer check against receivables
// @Description  One slip per check_id; a repeat answers 409
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Router       /ledger/checks [post]
func (h *LedgerHandler) CheckReceived(c *gin.Context) {
	var req CheckReceivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	cmd := accounting.CheckReceivedCommand{
		CompanyID: req.CompanyID,
		CheckID:   req.CheckID,
		CheckNo:   req.CheckNo,
		Amount:    req.Amount,
		Date:      time.Now().UTC(),
	}
	if req.Date != nil {
		cmd.Date = req.Date.UTC()
	}

	entry, err := h.posting.PostCheckReceived(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toJournalEntryResponse(entry))
}

// Storno godoc
// @Summary      Reverse a journal entry with its mirror slip
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Journal entry ID" format(uuid)
// @Router       /ledger/entries/{id}/storno [post]
func (h *LedgerHandler) Storno(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}
	var req StornoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	storno, err := h.posting.Storno(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toJournalEntryResponse(storno))
}

// AccountBalance godoc
// @Summary      Aggregate balance of one account
// @Tags         ledger
// @Produce      json
// @Param        code path string true "Account code"
// @Param        company_id query string true "Company ID" format(uuid)
// @Router       /ledger/accounts/{code}/balance [get]
func (h *LedgerHandler) AccountBalance(c *gin.Context) {
	companyID, err := uuid.Parse(c.Query("company_id"))
	if err != nil {
		h.BadRequest(c, "company_id must be a UUID")
		return
	}

	balance, err := h.posting.AccountBalance(c.Request.Context(), companyID, c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

func toJournalEntryResponse(e *domain.JournalEntry) JournalEntryResponse {
	resp := JournalEntryResponse{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		Date:        e.Date,
		Description: e.Description,
		SourceType:  e.SourceType,
		SourceID:    e.SourceID,
		Branch:      e.Branch,
		ReversalOf:  e.ReversalOf,
		ReversedBy:  e.ReversedBy,
		Lines:       make([]JournalLineResponse, len(e.Lines)),
		CreatedAt:   e.CreatedAt,
	}
	for i, l := range e.Lines {
		resp.Lines[i] = JournalLineResponse{
			LineNo:       l.LineNo,
			AccountCode:  l.AccountCode,
			Side:         string(l.Side),
			Amount:       l.Amount,
			DocumentType: l.DocumentType,
			DocumentNo:   l.DocumentNo,
		}
	}
	return resp
}
