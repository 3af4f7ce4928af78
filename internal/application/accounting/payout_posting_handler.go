package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// PayoutPostingHandlerName is persisted in handler receipts and must not change
const PayoutPostingHandlerName = "accounting.payout_posting"

// PayoutPostingHandler books the general-ledger side of escrow on the
// seller's books: the liability when an escrow payment settles and its
// settlement when the payout is released.
type PayoutPostingHandler struct {
	posting *PostingService
	guard   *ledger.ReceiptGuard
	logger  *zap.Logger
}

// NewPayoutPostingHandler creates a PayoutPostingHandler
func NewPayoutPostingHandler(posting *PostingService, guard *ledger.ReceiptGuard, logger *zap.Logger) *PayoutPostingHandler {
	return &PayoutPostingHandler{posting: posting, guard: guard, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PayoutPostingHandler) EventTypes() []string {
	return []string{escrow.EventPaymentPaid, escrow.EventPayoutReleased}
}

// HandlerName returns the stable receipt name
func (h *PayoutPostingHandler) HandlerName() string {
	return PayoutPostingHandlerName
}

// Handle posts the funding slip with source ("EscrowFunding", payment id) or
// the release slip with source ("EscrowRelease", order id). DIRECT payments
// never enter escrow and post nothing here.
func (h *PayoutPostingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		build   func() (*accounting.JournalEntry, error)
		orderID string
	)
	switch evt := event.(type) {
	case *escrow.PaymentPaidEvent:
		if evt.Mode != escrow.ModeEscrow {
			return nil
		}
		orderID = evt.OrderID.String()
		build = func() (*accounting.JournalEntry, error) {
			return accounting.EscrowFundingSlip(evt.CompanyID(), evt.PaymentID.String(), evt.OrderNumber, evt.Amount, evt.OccurredAt())
		}
	case *escrow.PayoutReleasedEvent:
		orderID = evt.OrderID.String()
		build = func() (*accounting.JournalEntry, error) {
			fees := evt.CommissionAmount.Add(evt.EscrowFee)
			return accounting.EscrowReleaseSlip(evt.CompanyID(), orderID, evt.OrderNumber, evt.Gross, fees, evt.OccurredAt())
		}
	default:
		return fmt.Errorf("unexpected event type: expected %s or %s, got %s",
			escrow.EventPaymentPaid, escrow.EventPayoutReleased, event.EventType())
	}

	_, err := h.guard.Run(ctx, event, PayoutPostingHandlerName, func(repos ledger.TransactionalRepositories) error {
		entry, err := build()
		if err != nil {
			return err
		}
		err = h.posting.PostWithin(ctx, repos, entry)
		if errors.Is(err, accounting.ErrSourceAlreadyPosted) {
			h.logger.Warn("escrow slip already posted",
				zap.String("order_id", orderID),
				zap.String("source_type", entry.SourceType),
			)
			return nil
		}
		return err
	})
	if err != nil {
		h.logger.Error("failed to post escrow slip",
			zap.String("event_type", event.EventType()),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to post escrow slip: %w", err)
	}
	return nil
}
