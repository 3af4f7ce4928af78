package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InMemoryEventBus fans a relayed outbox event out to its subscribers.
// Publish is synchronous and joins handler errors, so the outbox entry is
// retried until every subscriber (ledger posting, inventory, payout release)
// has succeeded. Subscribers are expected to be idempotent.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{registry: NewHandlerRegistry(), logger: logger}
}

// Publish delivers each event to all of its handlers. One handler failing
// or panicking does not keep the others from running.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, evt := range events {
		handlers := b.registry.GetHandlers(evt.EventType())
		if len(handlers) == 0 {
			b.logger.Debug("no subscribers", zap.String("event_type", evt.EventType()))
			continue
		}
		for _, h := range handlers {
			if err := b.deliver(ctx, h, evt); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", shared.HandlerName(h), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryEventBus) deliver(ctx context.Context, h shared.EventHandler, evt shared.DomainEvent) (err error) {
	name := shared.HandlerName(h)
	ctx, span := telemetry.StartSpan(ctx, "event.handle",
		telemetry.WithAttribute("handler", name),
		telemetry.WithAttribute("event_type", evt.EventType()),
		telemetry.WithAttribute("event_id", evt.EventID().String()),
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, evt.CompanyID().String()),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
		if err != nil {
			telemetry.RecordError(span, err)
			b.logger.Error("event handler failed",
				zap.String("handler", name),
				zap.String("event_type", evt.EventType()),
				zap.String("event_id", evt.EventID().String()),
				zap.Error(err),
			)
		}
		span.End()
	}()
	return h.Handle(ctx, evt)
}

// Subscribe registers handler for eventTypes, defaulting to the types the
// handler declares itself.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", shared.HandlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start logs the subscription table; delivery needs no background work
func (b *InMemoryEventBus) Start(context.Context) error {
	b.logger.Info("event bus started", zap.Strings("event_types", b.registry.EventTypes()))
	return nil
}

func (b *InMemoryEventBus) Stop(context.Context) error {
	b.logger.Info("event bus stopped")
	return nil
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
