package coupon

import (
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// IsValid reports whether the coupon can be redeemed at now.
// It never mutates the coupon.
func (c *Coupon) IsValid(now time.Time) bool {
	return c.Validate(now) == nil
}

// Validate is IsValid with the reason: ErrCouponExhausted when the usage cap
// is reached, ErrCouponInvalid for every other failed condition.
func (c *Coupon) Validate(now time.Time) error {
	if !c.IsActive {
		return shared.NewDomainError(shared.CodeCouponInvalid, "Coupon is not active")
	}
	if now.Before(c.ValidFrom) {
		return shared.NewDomainError(shared.CodeCouponInvalid, "Coupon is not yet valid")
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return shared.NewDomainError(shared.CodeCouponInvalid, "Coupon has expired")
	}
	if c.Exhausted() {
		return shared.ErrCouponExhausted
	}
	return nil
}

// MeetsMinimum reports whether orderTotal satisfies the minimum order value
func (c *Coupon) MeetsMinimum(orderTotal valueobject.Money) bool {
	if c.MinOrderValue == nil {
		return true
	}
	return orderTotal.GreaterThanOrEqual(*c.MinOrderValue)
}

// CalculateDiscount returns the discount the coupon grants on orderTotal at now.
// An invalid coupon, or a total below the minimum order value, yields zero.
// A fixed discount never exceeds orderTotal.
func (c *Coupon) CalculateDiscount(orderTotal valueobject.Money, now time.Time) valueobject.Money {
	if !c.IsValid(now) || !c.MeetsMinimum(orderTotal) || !orderTotal.IsPositive() {
		return valueobject.Zero()
	}

	switch c.Type {
	case TypePercentage:
		return orderTotal.CalculatePercentage(c.Value).Rounded()
	case TypeFixed:
		return valueobject.NewMoney(c.Value).Min(orderTotal).Rounded()
	default:
		return valueobject.Zero()
	}
}
