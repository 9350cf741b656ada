package coupon

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// CreateCouponRequest represents a request to create a coupon
type CreateCouponRequest struct {
	Code          string           `json:"code" binding:"required,min=1,max=50"`
	Type          string           `json:"type" binding:"required,oneof=percentage fixed"`
	Value         decimal.Decimal  `json:"value" binding:"required"`
	ValidFrom     time.Time        `json:"valid_from" binding:"required"`
	ValidUntil    *time.Time       `json:"valid_until"`
	MaxUses       *int             `json:"max_uses" binding:"omitempty,min=1"`
	MinOrderValue *decimal.Decimal `json:"min_order_value"`
	IsActive      *bool            `json:"is_active"`
}

// UpdateCouponRequest represents a partial coupon update; nil fields are left unchanged
type UpdateCouponRequest struct {
	Code          *string          `json:"code" binding:"omitempty,min=1,max=50"`
	Type          *string          `json:"type" binding:"omitempty,oneof=percentage fixed"`
	Value         *decimal.Decimal `json:"value"`
	ValidFrom     *time.Time       `json:"valid_from"`
	ValidUntil    *time.Time       `json:"valid_until"`
	MaxUses       *int             `json:"max_uses" binding:"omitempty,min=1"`
	MinOrderValue *decimal.Decimal `json:"min_order_value"`
	IsActive      *bool            `json:"is_active"`
}

// ValidateCouponRequest asks what a code is worth against an order total
type ValidateCouponRequest struct {
	Code       string          `json:"code" binding:"required"`
	OrderTotal decimal.Decimal `json:"order_total" binding:"required"`
}

// ValidateCouponResponse is the result of a coupon validation
type ValidateCouponResponse struct {
	Valid      bool              `json:"valid"`
	Discount   valueobject.Money `json:"discount"`
	FinalTotal valueobject.Money `json:"final_total"`
	Message    string            `json:"message,omitempty"`
	Coupon     *CouponResponse   `json:"coupon,omitempty"`
}

// ListFilter filters coupon listings
type ListFilter struct {
	ActiveOnly bool   `form:"active_only"`
	Search     string `form:"search"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// CouponResponse represents a coupon in API responses
type CouponResponse struct {
	ID            uuid.UUID          `json:"id"`
	Code          string             `json:"code"`
	Type          string             `json:"type"`
	Value         decimal.Decimal    `json:"value"`
	ValidFrom     time.Time          `json:"valid_from"`
	ValidUntil    *time.Time         `json:"valid_until,omitempty"`
	MaxUses       *int               `json:"max_uses,omitempty"`
	TimesUsed     int                `json:"times_used"`
	RemainingUses *int               `json:"remaining_uses,omitempty"`
	MinOrderValue *valueobject.Money `json:"min_order_value,omitempty"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ToCouponResponse converts a domain coupon to a response DTO
func ToCouponResponse(c *coupon.Coupon) CouponResponse {
	return CouponResponse{
		ID:            c.ID,
		Code:          c.Code,
		Type:          string(c.Type),
		Value:         c.Value,
		ValidFrom:     c.ValidFrom,
		ValidUntil:    c.ValidUntil,
		MaxUses:       c.MaxUses,
		TimesUsed:     c.TimesUsed,
		RemainingUses: c.RemainingUses(),
		MinOrderValue: c.MinOrderValue,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToCouponResponses converts a slice of coupons
func ToCouponResponses(coupons []coupon.Coupon) []CouponResponse {
	responses := make([]CouponResponse, len(coupons))
	for i := range coupons {
		responses[i] = ToCouponResponse(&coupons[i])
	}
	return responses
}

func moneyPtr(d *decimal.Decimal) *valueobject.Money {
	if d == nil {
		return nil
	}
	m := valueobject.NewMoney(*d)
	return &m
}
