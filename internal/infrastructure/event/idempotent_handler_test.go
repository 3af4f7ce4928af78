package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsSecondDelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := newTestHandler("accounting.sale_posting", "sale.completed")
	h := NewIdempotentHandler(inner, store, zap.NewNop())
	event := newTestEvent("sale.completed", uuid.New())

	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1)
	stats := h.GetMetrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(1), stats.EventsDuplicate)
}

func TestIdempotentHandler_KeyIncludesHandlerName(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	stock := newTestHandler("inventory.stock_consumption", "sale.completed")
	posting := newTestHandler("accounting.sale_posting", "sale.completed")
	event := newTestEvent("sale.completed", uuid.New())

	require.NoError(t, NewIdempotentHandler(stock, store, zap.NewNop()).Handle(context.Background(), event))
	require.NoError(t, NewIdempotentHandler(posting, store, zap.NewNop()).Handle(context.Background(), event))

	assert.Len(t, stock.getHandled(), 1)
	assert.Len(t, posting.getHandled(), 1)

	done, err := store.IsProcessed(context.Background(), shared.HandlerKey(event.EventID(), "accounting.sale_posting"))
	require.NoError(t, err)
	assert.True(t, done)
}

func TestIdempotentHandler_FailureIsNotRecorded(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := newTestHandler("accounting.sale_posting", "sale.completed")
	inner.setError(errors.New("db down"))
	h := NewIdempotentHandler(inner, store, zap.NewNop())
	event := newTestEvent("sale.completed", uuid.New())

	require.Error(t, h.Handle(context.Background(), event))

	inner.setError(nil)
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 2, "a failed attempt must be retried")
	assert.Equal(t, int64(1), h.GetMetrics().Stats().EventsFailed)
}

func TestIdempotentHandler_StoreUnavailable(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler("escrow.payout_release", "network_order.completed")
	event := newTestEvent("network_order.completed", uuid.New())
	key := shared.HandlerKey(event.EventID(), "escrow.payout_release")

	store.On("IsProcessed", mock.Anything, key).Return(false, errors.New("connection refused"))
	store.On("MarkProcessed", mock.Anything, key, mock.Anything).Return(false, errors.New("connection refused"))

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_MarksAfterSuccessOnly(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler("escrow.payout_release", "network_order.completed")
	inner.setError(errors.New("boom"))
	event := newTestEvent("network_order.completed", uuid.New())
	key := shared.HandlerKey(event.EventID(), "escrow.payout_release")

	store.On("IsProcessed", mock.Anything, key).Return(false, nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	require.Error(t, h.Handle(context.Background(), event))

	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_UsesConfiguredTTL(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler("h", "TestEvent")
	event := newTestEvent("TestEvent", uuid.New())
	key := shared.HandlerKey(event.EventID(), "h")

	store.On("IsProcessed", mock.Anything, key).Return(false, nil)
	store.On("MarkProcessed", mock.Anything, key, 2*time.Hour).Return(true, nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: true, TTL: 2 * time.Hour}),
	)
	require.NoError(t, h.Handle(context.Background(), event))
	store.AssertExpectations(t)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler("h", "TestEvent")
	event := newTestEvent("TestEvent", uuid.New())

	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}),
	)
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 2)
	store.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
}

func TestIdempotentHandler_KeepsNameAndTypes(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := newTestHandler("inventory.stock_consumption", "sale.completed")
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	assert.Equal(t, "inventory.stock_consumption", shared.HandlerName(h))
	assert.Equal(t, []string{"sale.completed"}, h.EventTypes())
	assert.Equal(t, inner, h.Unwrap())
}

func TestWrapHandlersWithIdempotency_SharedMetrics(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	metrics := &IdempotencyMetrics{}
	handlers := WrapHandlersWithIdempotency([]shared.EventHandler{
		newTestHandler("a", "TestEvent"),
		newTestHandler("b", "TestEvent"),
	}, store, zap.NewNop(), WithIdempotencyMetrics(metrics))

	event := newTestEvent("TestEvent", uuid.New())
	for _, h := range handlers {
		require.NoError(t, h.Handle(context.Background(), event))
		require.NoError(t, h.Handle(context.Background(), event))
	}

	stats := metrics.Stats()
	assert.Equal(t, int64(2), stats.EventsProcessed)
	assert.Equal(t, int64(2), stats.EventsDuplicate)
}
