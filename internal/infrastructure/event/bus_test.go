package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New(), time.Now()),
	}
}

type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	err        error
	panicWith  any
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, evt)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("routes by event type", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		placed := newTestHandler("OrderPlaced")
		cancelled := newTestHandler("OrderCancelled")
		bus.Subscribe(placed)
		bus.Subscribe(cancelled)

		require.NoError(t, bus.Publish(ctx, newTestEvent("OrderPlaced"), newTestEvent("OrderPlaced")))

		assert.Equal(t, 2, placed.count())
		assert.Zero(t, cancelled.count())
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newTestHandler("OrderPlaced")
		bus.Subscribe(h, "OrderDeleted")

		require.NoError(t, bus.Publish(ctx, newTestEvent("OrderPlaced"), newTestEvent("OrderDeleted")))
		assert.Equal(t, 1, h.count())
	})

	t.Run("wildcard receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		all := newTestHandler()
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx, newTestEvent("OrderPlaced"), newTestEvent("CartAbandoned")))
		assert.Equal(t, 2, all.count())
	})

	t.Run("failing and panicking handlers are isolated", func(t *testing.T) {
		core, recorded := observer.New(zapcore.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))

		failing := newTestHandler("OrderPlaced")
		failing.err = errors.New("metrics backend down")
		panicking := newTestHandler("OrderPlaced")
		panicking.panicWith = "boom"
		healthy := newTestHandler("OrderPlaced")
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, newTestEvent("OrderPlaced")))

		assert.Equal(t, 1, healthy.count())
		assert.Equal(t, 2, recorded.FilterMessage("handler failed to process event").Len())
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler("OrderPlaced")
	bus.Subscribe(h)

	_ = bus.Publish(context.Background(), newTestEvent("OrderPlaced"))
	bus.Unsubscribe(h)
	_ = bus.Publish(context.Background(), newTestEvent("OrderPlaced"))

	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler("OrderPlaced")
	bus.Subscribe(h)

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("OrderPlaced")))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))

	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("OrderPlaced")), ErrBusStopped)
	assert.Equal(t, 1, h.count())

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent("OrderPlaced")))
}

type blockingHandler struct {
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHandler) Handle(context.Context, shared.DomainEvent) error {
	close(h.entered)
	<-h.release
	return nil
}

func (h *blockingHandler) EventTypes() []string { return []string{"OrderPlaced"} }

func TestInMemoryEventBus_StopWaitsForInFlight(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &blockingHandler{entered: make(chan struct{}), release: make(chan struct{})}
	bus.Subscribe(h)

	go func() { _ = bus.Publish(context.Background(), newTestEvent("OrderPlaced")) }()
	<-h.entered

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Stop(shortCtx), context.DeadlineExceeded)

	close(h.release)
	assert.NoError(t, bus.Stop(context.Background()))
}
