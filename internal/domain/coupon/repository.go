package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ListFilter narrows coupon listings
type ListFilter struct {
	shared.Filter
	// ActiveOnly keeps coupons that are active and not past valid_until at Now
	ActiveOnly bool
	Now        time.Time
}

// Repository defines the interface for coupon persistence
type Repository interface {
	// FindByID finds a coupon by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)

	// FindByCode finds a coupon by its normalized code
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// FindAll returns a page of coupons and the total count
	FindAll(ctx context.Context, filter ListFilter) ([]Coupon, int64, error)

	// ExistsByCode checks for a code, ignoring excludeID when set
	ExistsByCode(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)

	// Save creates or updates a coupon
	Save(ctx context.Context, coupon *Coupon) error

	// Delete soft-deletes a coupon
	Delete(ctx context.Context, id uuid.UUID) error

	// Redeem atomically increments times_used while it is below max_uses.
	// Returns shared.ErrCouponExhausted when the cap is already reached and
	// shared.ErrNotFound when the coupon does not exist.
	Redeem(ctx context.Context, id uuid.UUID) error
}
