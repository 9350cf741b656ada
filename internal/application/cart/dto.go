package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// AddItemRequest represents a request to add a product to the cart
type AddItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required,min=1"`
}

// UpdateItemRequest sets a line's quantity; zero or less removes the line
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// ApplyCouponRequest attaches a coupon code to the cart
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,min=1,max=50"`
}

// CartItemResponse represents a cart line in API responses
type CartItemResponse struct {
	ID        uuid.UUID         `json:"id"`
	ProductID uuid.UUID         `json:"product_id"`
	VariantID *uuid.UUID        `json:"variant_id,omitempty"`
	Quantity  int               `json:"quantity"`
	UnitPrice valueobject.Money `json:"unit_price"`
	Subtotal  valueobject.Money `json:"subtotal"`
}

// CouponPreview shows what an attached coupon would take off at checkout
type CouponPreview struct {
	Code       string            `json:"code"`
	Valid      bool              `json:"valid"`
	Discount   valueobject.Money `json:"discount"`
	FinalTotal valueobject.Money `json:"final_total"`
	Message    string            `json:"message,omitempty"`
}

// CartResponse represents a cart with its read projections
type CartResponse struct {
	ID        uuid.UUID          `json:"id"`
	UserID    *uuid.UUID         `json:"user_id,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
	Status    string             `json:"status"`
	ExpiresAt time.Time          `json:"expires_at"`
	Items     []CartItemResponse `json:"items"`
	Subtotal  valueobject.Money  `json:"subtotal"`
	Total     valueobject.Money  `json:"total"`
	ItemCount int                `json:"item_count"`
	Coupon    *CouponPreview     `json:"coupon,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ToCartResponse converts a cart to its response without a coupon preview
func ToCartResponse(c *cart.Cart) CartResponse {
	items := make([]CartItemResponse, len(c.Lines))
	for i := range c.Lines {
		l := &c.Lines[i]
		items[i] = CartItemResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		}
	}
	return CartResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		SessionID: c.SessionID,
		Status:    string(c.Status),
		ExpiresAt: c.ExpiresAt,
		Items:     items,
		Subtotal:  c.Subtotal(),
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
