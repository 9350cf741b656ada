package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for cart persistence
type Repository interface {
	// FindByID finds a cart with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)

	// FindActive finds the single active cart of identity
	FindActive(ctx context.Context, identity Identity) (*Cart, error)

	// CreateIfAbsent inserts cart unless an active cart already exists for its
	// owner, and returns whichever cart is active afterwards.
	CreateIfAbsent(ctx context.Context, cart *Cart) (*Cart, error)

	// Save persists the cart and reconciles its lines in one transaction
	Save(ctx context.Context, cart *Cart) error

	// Delete soft-deletes a cart and its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// AbandonExpired marks up to limit active carts whose expiry is before now
	// as abandoned, returning how many were changed.
	AbandonExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}
