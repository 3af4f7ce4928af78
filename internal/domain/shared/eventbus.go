package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in
	// An empty slice means the handler receives all events
	EventTypes() []string
}

// NamedHandler is implemented by handlers that keep per-handler idempotency receipts.
// The name must be stable across deployments since it is persisted.
type NamedHandler interface {
	EventHandler
	HandlerName() string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// EventEmitter durably records domain events inside the caller's unit of work.
// An event that was not emitted before commit never happened.
type EventEmitter interface {
	Emit(ctx context.Context, events ...DomainEvent) error
}

// HandlerName returns the persisted name of a handler, falling back to its Go type
func HandlerName(h EventHandler) string {
	if n, ok := h.(NamedHandler); ok {
		return n.HandlerName()
	}
	return typeName(h)
}
