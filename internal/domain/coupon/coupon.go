package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type is the discount strategy of a coupon
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

// IsValid checks if the type is known
func (t Type) IsValid() bool {
	return t == TypePercentage || t == TypeFixed
}

var upper = cases.Upper(language.Und)

// NormalizeCode trims and upper-cases a coupon code; codes are case-insensitive
func NormalizeCode(code string) string {
	return upper.String(strings.TrimSpace(code))
}

// Coupon is a redeemable discount code
type Coupon struct {
	shared.BaseAggregateRoot
	Code          string
	Type          Type
	Value         decimal.Decimal
	ValidFrom     time.Time
	ValidUntil    *time.Time
	MaxUses       *int
	TimesUsed     int
	MinOrderValue *valueobject.Money
	IsActive      bool
}

// Params carries the attributes used to create or update a coupon
type Params struct {
	Code          string
	Type          Type
	Value         decimal.Decimal
	ValidFrom     time.Time
	ValidUntil    *time.Time
	MaxUses       *int
	MinOrderValue *valueobject.Money
	IsActive      bool
}

// NewCoupon creates a coupon from validated params
func NewCoupon(p Params) (*Coupon, error) {
	c := &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
	}
	if err := c.apply(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the coupon's attributes. TimesUsed is preserved.
// Once redeemed, only IsActive may change.
func (c *Coupon) Update(p Params) error {
	if c.InUse() && !c.sameTerms(p) {
		return shared.NewDomainError(shared.CodeInvalidState, "Coupon has been redeemed; only is_active can be changed")
	}
	if err := c.apply(p); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	return nil
}

// InUse reports whether any order has redeemed the coupon
func (c *Coupon) InUse() bool {
	return c.TimesUsed > 0
}

// CanDelete returns an error when the coupon is referenced by orders
func (c *Coupon) CanDelete() error {
	if c.InUse() {
		return shared.NewDomainError(shared.CodeInvalidState, "Coupon has been redeemed and cannot be deleted")
	}
	return nil
}

func (c *Coupon) sameTerms(p Params) bool {
	if NormalizeCode(p.Code) != c.Code || p.Type != c.Type || !p.Value.Equal(c.Value) {
		return false
	}
	if !p.ValidFrom.Equal(c.ValidFrom) || !sameTime(p.ValidUntil, c.ValidUntil) {
		return false
	}
	if (p.MaxUses == nil) != (c.MaxUses == nil) || (p.MaxUses != nil && *p.MaxUses != *c.MaxUses) {
		return false
	}
	if (p.MinOrderValue == nil) != (c.MinOrderValue == nil) {
		return false
	}
	return p.MinOrderValue == nil || p.MinOrderValue.Equals(*c.MinOrderValue)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (c *Coupon) apply(p Params) error {
	code := NormalizeCode(p.Code)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon code cannot exceed 50 characters")
	}
	if !p.Type.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon type must be percentage or fixed")
	}
	if p.Value.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon value cannot be negative")
	}
	if p.Type == TypePercentage && p.Value.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Percentage coupon value cannot exceed 100")
	}
	if p.ValidFrom.IsZero() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon valid_from is required")
	}
	if p.ValidUntil != nil && !p.ValidUntil.After(p.ValidFrom) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon valid_until must be after valid_from")
	}
	if p.MaxUses != nil && *p.MaxUses < 1 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon max_uses must be at least 1")
	}
	if p.MinOrderValue != nil && p.MinOrderValue.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon min_order_value cannot be negative")
	}

	c.Code = code
	c.Type = p.Type
	c.Value = p.Value
	c.ValidFrom = p.ValidFrom
	c.ValidUntil = p.ValidUntil
	c.MaxUses = p.MaxUses
	c.MinOrderValue = p.MinOrderValue
	c.IsActive = p.IsActive
	return nil
}

// Activate enables the coupon
func (c *Coupon) Activate() {
	c.IsActive = true
	c.UpdatedAt = time.Now()
}

// Deactivate disables the coupon
func (c *Coupon) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
}

// Exhausted reports whether the usage cap has been reached
func (c *Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.TimesUsed >= *c.MaxUses
}

// RemainingUses returns how many redemptions are left, or nil when uncapped
func (c *Coupon) RemainingUses() *int {
	if c.MaxUses == nil {
		return nil
	}
	left := *c.MaxUses - c.TimesUsed
	if left < 0 {
		left = 0
	}
	return &left
}
