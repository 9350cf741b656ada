package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	registry := NewHandlerRegistry()
	h := newTestHandler("OrderPlaced", "OrderCancelled")

	registry.Register(h, "OrderPlaced", "OrderCancelled")
	registry.Register(h, "OrderPlaced")

	assert.Len(t, registry.GetHandlers("OrderPlaced"), 1)
	assert.Len(t, registry.GetHandlers("OrderCancelled"), 1)
	assert.Empty(t, registry.GetHandlers("OrderDeleted"))
	assert.Equal(t, 1, registry.Len())
}

func TestHandlerRegistry_WildcardAfterTyped(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := newTestHandler("OrderPlaced")
	all := newTestHandler()

	registry.Register(all)
	registry.Register(typed, "OrderPlaced")

	handlers := registry.GetHandlers("OrderPlaced")
	if assert.Len(t, handlers, 2) {
		assert.Same(t, typed, handlers[0])
		assert.Same(t, all, handlers[1])
	}
	assert.Len(t, registry.GetHandlers("CartAbandoned"), 1)
	assert.Equal(t, 2, registry.Len())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	keep := newTestHandler("OrderPlaced")
	drop := newTestHandler("OrderPlaced")

	registry.Register(keep, "OrderPlaced")
	registry.Register(drop, "OrderPlaced", "OrderDeleted")
	registry.Register(drop)

	registry.Unregister(drop)

	assert.Equal(t, 1, registry.Len())
	assert.Len(t, registry.GetHandlers("OrderPlaced"), 1)
	assert.Empty(t, registry.GetHandlers("OrderDeleted"))
}
