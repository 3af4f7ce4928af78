package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// ReceiptGuard makes an event handler's side effects happen at most once per
// (event id, handler name). The receipt row is written in the same transaction
// as the side effects, so a crash between them cannot leave one without the other.
type ReceiptGuard struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewReceiptGuard creates a ReceiptGuard
func NewReceiptGuard(scope TransactionScope, logger *zap.Logger) *ReceiptGuard {
	return &ReceiptGuard{scope: scope, logger: logger}
}

// Run records the receipt and runs fn in one transaction.
// It returns false without calling fn when the receipt already exists.
func (g *ReceiptGuard) Run(
	ctx context.Context,
	event shared.DomainEvent,
	handlerName string,
	fn func(repos TransactionalRepositories) error,
) (bool, error) {
	applied := false
	err := g.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inserted, err := repos.HandlerReceiptRepo().Record(ctx, event.EventID(), handlerName)
		if err != nil {
			return fmt.Errorf("failed to record handler receipt: %w", err)
		}
		if !inserted {
			return nil
		}
		if err := fn(repos); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !applied {
		g.logger.Debug("event already handled, skipping",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.String("handler", handlerName),
		)
	}
	return applied, nil
}
