package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Lifetime is how long a new cart stays active
const Lifetime = 7 * 24 * time.Hour

// MetadataCouponCode is the metadata key holding an attached coupon code
const MetadataCouponCode = "coupon_code"

// Status represents the lifecycle state of a cart
type Status string

const (
	StatusActive    Status = "active"
	StatusAbandoned Status = "abandoned"
	StatusConverted Status = "converted"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusAbandoned, StatusConverted:
		return true
	}
	return false
}

// Identity names the owner of a cart: an authenticated user, or else an
// anonymous session token.
type Identity struct {
	UserID    *uuid.UUID
	SessionID string
}

// IsAuthenticated reports whether the identity is a user
func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

// IsZero reports whether neither a user nor a session is known
func (i Identity) IsZero() bool {
	return !i.IsAuthenticated() && i.SessionID == ""
}

// Line is one product/variant in a cart with its snapshotted unit price
type Line struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	UnitPrice valueobject.Money
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal returns Quantity * UnitPrice
func (l *Line) Subtotal() valueobject.Money {
	sub, err := pricing.LineSubtotal(l.Quantity, l.UnitPrice)
	if err != nil {
		return valueobject.Zero()
	}
	return sub
}

func (l *Line) matches(productID uuid.UUID, variantID *uuid.UUID) bool {
	if l.ProductID != productID {
		return false
	}
	if l.VariantID == nil || variantID == nil {
		return l.VariantID == nil && variantID == nil
	}
	return *l.VariantID == *variantID
}

// Cart is a pre-order basket owned by a user or an anonymous session
type Cart struct {
	shared.BaseAggregateRoot
	UserID    *uuid.UUID
	SessionID string
	Status    Status
	ExpiresAt time.Time
	Metadata  map[string]string
	Lines     []Line
}

// NewCart creates an active cart for identity that expires after Lifetime.
// A user identity takes precedence over a session token.
func NewCart(identity Identity, now time.Time) (*Cart, error) {
	if identity.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Cart requires a user or a session")
	}

	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Status:            StatusActive,
		ExpiresAt:         now.Add(Lifetime),
		Metadata:          make(map[string]string),
		Lines:             make([]Line, 0),
	}
	if identity.IsAuthenticated() {
		uid := *identity.UserID
		c.UserID = &uid
	} else {
		c.SessionID = identity.SessionID
	}
	return c, nil
}

func (c *Cart) ensureActive() error {
	if c.Status != StatusActive {
		return shared.NewDomainError(shared.CodeInvalidState, "Cart is no longer active")
	}
	return nil
}

// AddItem adds quantity of product (and optional variant) to the cart.
// An existing line for the same product and variant is incremented in place
// without re-snapshotting its price; otherwise a new line is priced from the
// variant, falling back to the product. Stock is the caller's concern.
func (c *Cart) AddItem(product *catalog.Product, variant *catalog.Variant, quantity int) (*Line, error) {
	if err := c.ensureActive(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product is required")
	}
	if quantity < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be at least 1")
	}
	if variant != nil && variant.ProductID != product.ID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Variant does not belong to product")
	}

	var variantID *uuid.UUID
	if variant != nil {
		id := variant.ID
		variantID = &id
	}

	now := time.Now()
	for idx := range c.Lines {
		if c.Lines[idx].matches(product.ID, variantID) {
			c.Lines[idx].Quantity += quantity
			c.Lines[idx].UpdatedAt = now
			c.UpdatedAt = now
			return &c.Lines[idx], nil
		}
	}

	c.Lines = append(c.Lines, Line{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: product.ID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: catalog.UnitPrice(product, variant),
		CreatedAt: now,
		UpdatedAt: now,
	})
	c.UpdatedAt = now
	return &c.Lines[len(c.Lines)-1], nil
}

// UpdateItemQuantity sets a line's quantity. A quantity of zero or less
// removes the line, reported by removed == true.
func (c *Cart) UpdateItemQuantity(lineID uuid.UUID, quantity int) (line *Line, removed bool, err error) {
	if err := c.ensureActive(); err != nil {
		return nil, false, err
	}
	if quantity <= 0 {
		if err := c.RemoveItem(lineID); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	l := c.FindLine(lineID)
	if l == nil {
		return nil, false, lineNotFound()
	}
	l.Quantity = quantity
	l.UpdatedAt = time.Now()
	c.UpdatedAt = l.UpdatedAt
	return l, false, nil
}

// RemoveItem deletes a line from the cart
func (c *Cart) RemoveItem(lineID uuid.UUID) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	for idx := range c.Lines {
		if c.Lines[idx].ID == lineID {
			c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return lineNotFound()
}

// Clear removes every line
func (c *Cart) Clear() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Lines = make([]Line, 0)
	c.UpdatedAt = time.Now()
	return nil
}

// FindLine returns the line with lineID, or nil
func (c *Cart) FindLine(lineID uuid.UUID) *Line {
	for idx := range c.Lines {
		if c.Lines[idx].ID == lineID {
			return &c.Lines[idx]
		}
	}
	return nil
}

// Subtotal is the sum of line subtotals, computed on read
func (c *Cart) Subtotal() valueobject.Money {
	total := valueobject.Zero()
	for idx := range c.Lines {
		total = total.Add(c.Lines[idx].Subtotal())
	}
	return total
}

// Total equals Subtotal: tax, shipping and discounts apply at order time only
func (c *Cart) Total() valueobject.Money {
	return c.Subtotal()
}

// ItemCount is the sum of line quantities
func (c *Cart) ItemCount() int {
	count := 0
	for idx := range c.Lines {
		count += c.Lines[idx].Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// IsExpired reports whether the cart's expiry has passed at now
func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// OwnedBy reports whether identity owns the cart
func (c *Cart) OwnedBy(identity Identity) bool {
	if c.UserID != nil {
		return identity.IsAuthenticated() && *identity.UserID == *c.UserID
	}
	return c.SessionID != "" && c.SessionID == identity.SessionID
}

// AttachCoupon records a coupon code to be used at checkout
func (c *Cart) AttachCoupon(code string) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Coupon code cannot be empty")
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	c.Metadata[MetadataCouponCode] = code
	c.UpdatedAt = time.Now()
	return nil
}

// DetachCoupon forgets the attached coupon code
func (c *Cart) DetachCoupon() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	delete(c.Metadata, MetadataCouponCode)
	c.UpdatedAt = time.Now()
	return nil
}

// CouponCode returns the attached coupon code, or ""
func (c *Cart) CouponCode() string {
	return c.Metadata[MetadataCouponCode]
}

// MarkConverted moves an active cart to its terminal converted state
func (c *Cart) MarkConverted() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Status = StatusConverted
	c.UpdatedAt = time.Now()
	return nil
}

// MarkAbandoned moves an active cart to abandoned
func (c *Cart) MarkAbandoned() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Status = StatusAbandoned
	c.UpdatedAt = time.Now()
	return nil
}

func lineNotFound() error {
	return shared.NewDomainError(shared.CodeNotFound, "Cart item not found")
}
