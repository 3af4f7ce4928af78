package shared

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// IdempotencyStore stores processed keys to prevent duplicate processing
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL
	// Returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed key is remembered by the fast-path store
	TTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}

// HandlerKey is the idempotency key of one handler's processing of one event
func HandlerKey(eventID uuid.UUID, handlerName string) string {
	return fmt.Sprintf("%s:%s", eventID, handlerName)
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// HandlerReceiptRepository records which handler processed which event.
// Record must run in the same transaction as the handler's side effects.
type HandlerReceiptRepository interface {
	// Record returns false if the (event, handler) pair was already recorded
	Record(ctx context.Context, eventID uuid.UUID, handlerName string) (bool, error)
}
