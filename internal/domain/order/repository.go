package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ListFilter narrows order listings
type ListFilter struct {
	shared.Filter
	UserID   *uuid.UUID
	Status   Status
	FromDate *time.Time
	ToDate   *time.Time
}

// Repository defines the interface for order persistence
type Repository interface {
	// FindByID finds an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNumber finds an order by its number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindAll returns a page of orders (without lines) and the total count
	FindAll(ctx context.Context, filter ListFilter) ([]Order, int64, error)

	// Save creates an order or updates it with an optimistic version check,
	// reconciling its lines. A stale version returns shared.ErrConcurrencyConflict.
	Save(ctx context.Context, order *Order) error

	// Delete soft-deletes an order and its lines
	Delete(ctx context.Context, id uuid.UUID) error
}
