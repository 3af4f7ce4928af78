package escrow

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// PayoutReleaseHandlerName is persisted in handler receipts and must not change
const PayoutReleaseHandlerName = "escrow.payout_release"

// PayoutReleaseHandler releases escrow when the buyer completes an order.
// Release is idempotent on the order, so the handler needs no receipt of its own
// beyond the fast-path idempotency wrapper.
type PayoutReleaseHandler struct {
	service *EscrowService
	logger  *zap.Logger
}

// NewPayoutReleaseHandler creates a PayoutReleaseHandler
func NewPayoutReleaseHandler(service *EscrowService, logger *zap.Logger) *PayoutReleaseHandler {
	return &PayoutReleaseHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PayoutReleaseHandler) EventTypes() []string {
	return []string{escrow.EventOrderCompleted}
}

// HandlerName returns the stable receipt name
func (h *PayoutReleaseHandler) HandlerName() string {
	return PayoutReleaseHandlerName
}

// Handle releases the order's escrow. Orders paid DIRECT have nothing to release.
func (h *PayoutReleaseHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*escrow.OrderCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s", escrow.EventOrderCompleted, event.EventType())
	}

	result, err := h.service.Release(ctx, completed.OrderID, TriggeredByBuyer)
	if err != nil {
		outcome := shared.OutcomeFromError(err)
		if outcome.Kind == shared.OutcomeValidationFailed || outcome.Kind == shared.OutcomeNotFound {
			// retrying cannot change a DIRECT or unpaid order
			h.logger.Warn("order completed without releasable escrow",
				zap.String("order_id", completed.OrderID.String()),
				zap.String("event_id", completed.EventID().String()),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("failed to release escrow for order %s: %w", completed.OrderID, err)
	}

	h.logger.Info("escrow released on delivery confirmation",
		zap.String("order_id", completed.OrderID.String()),
		zap.String("outcome", string(result.Outcome.Kind)),
	)
	return nil
}
