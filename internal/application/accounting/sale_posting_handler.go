package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// SalePostingHandlerName is persisted in handler receipts and must not change
const SalePostingHandlerName = "accounting.sale_posting"

// SalePostingHandler posts the revenue slip of every sold marketplace line
type SalePostingHandler struct {
	posting *PostingService
	guard   *ledger.ReceiptGuard
	logger  *zap.Logger
}

// NewSalePostingHandler creates a SalePostingHandler
func NewSalePostingHandler(posting *PostingService, guard *ledger.ReceiptGuard, logger *zap.Logger) *SalePostingHandler {
	return &SalePostingHandler{posting: posting, guard: guard, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *SalePostingHandler) EventTypes() []string {
	return []string{sales.EventSaleCompleted}
}

// HandlerName returns the stable receipt name
func (h *SalePostingHandler) HandlerName() string {
	return SalePostingHandlerName
}

// Handle posts DEBIT receivables / CREDIT sales / CREDIT VAT with source ("SaleLine", event id)
func (h *SalePostingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	sale, ok := event.(*sales.SaleCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s", sales.EventSaleCompleted, event.EventType())
	}

	applied, err := h.guard.Run(ctx, sale, SalePostingHandlerName, func(repos ledger.TransactionalRepositories) error {
		if !sale.SaleAmount.IsPositive() {
			h.logger.Warn("sale line without amount, nothing to post",
				zap.String("event_id", sale.EventID().String()),
				zap.String("order_number", sale.OrderNumber),
				zap.String("sku", sale.SKU),
			)
			return nil
		}
		entry, err := accounting.SaleSlip(sale.CompanyID(), sale.EventID().String(), sale.OrderNumber, sale.SaleAmount, sale.TaxRate, sale.OccurredAt())
		if err != nil {
			return err
		}
		err = h.posting.PostWithin(ctx, repos, entry)
		if errors.Is(err, accounting.ErrSourceAlreadyPosted) {
			return nil
		}
		return err
	})
	if err != nil {
		h.logger.Error("failed to post sale slip",
			zap.String("event_id", sale.EventID().String()),
			zap.String("order_number", sale.OrderNumber),
			zap.Error(err),
		)
		return fmt.Errorf("failed to post sale slip: %w", err)
	}
	if applied {
		h.logger.Info("sale slip posted",
			zap.String("event_id", sale.EventID().String()),
			zap.String("order_number", sale.OrderNumber),
			zap.String("amount", sale.SaleAmount.String()),
		)
	}
	return nil
}
