package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderItemInput is one requested (product, quantity) pair
type OrderItemInput struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	ShippingAddress string           `json:"shipping_address" binding:"required,max=500"`
	BillingAddress  string           `json:"billing_address" binding:"required,max=500"`
	PaymentMethod   string           `json:"payment_method" binding:"required,max=50"`
	Items           []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	CouponCode      string           `json:"coupon_code" binding:"omitempty,max=50"`
	IdempotencyKey  string           `json:"-"`
}

// CheckoutRequest places an order from the caller's active cart. CouponCode
// overrides the code attached to the cart.
type CheckoutRequest struct {
	ShippingAddress string  `json:"shipping_address" binding:"required,max=500"`
	BillingAddress  string  `json:"billing_address" binding:"required,max=500"`
	PaymentMethod   string  `json:"payment_method" binding:"required,max=50"`
	CouponCode      *string `json:"coupon_code" binding:"omitempty,max=50"`
	IdempotencyKey  string  `json:"-"`
}

// AddOrderItemRequest adds a line to a pending order
type AddOrderItemRequest = OrderItemInput

// UpdateOrderRequest changes order-level fields; nil fields are left unchanged
type UpdateOrderRequest struct {
	Status          *string `json:"status" binding:"omitempty,oneof=pending processing completed cancelled"`
	PaymentStatus   *string `json:"payment_status" binding:"omitempty,oneof=pending paid failed"`
	ShippingAddress *string `json:"shipping_address" binding:"omitempty,max=500"`
	BillingAddress  *string `json:"billing_address" binding:"omitempty,max=500"`
}

// ListFilter filters order listings
type ListFilter struct {
	Status   string     `form:"status" binding:"omitempty,oneof=pending processing completed cancelled"`
	FromDate *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"to_date" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID         `json:"id"`
	ProductID   uuid.UUID         `json:"product_id"`
	VariantID   *uuid.UUID        `json:"variant_id,omitempty"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	Subtotal    valueobject.Money `json:"subtotal"`
}

// OrderResponse represents an order with its lines
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	PaymentMethod   string              `json:"payment_method"`
	ShippingAddress string              `json:"shipping_address"`
	BillingAddress  string              `json:"billing_address"`
	Subtotal        valueobject.Money   `json:"subtotal"`
	Tax             valueobject.Money   `json:"tax"`
	Shipping        valueobject.Money   `json:"shipping"`
	Discount        valueobject.Money   `json:"discount"`
	Total           valueobject.Money   `json:"total"`
	CouponID        *uuid.UUID          `json:"coupon_id,omitempty"`
	CartID          *uuid.UUID          `json:"cart_id,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	ItemCount       int                 `json:"item_count"`
	Version         int                 `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderListItemResponse represents an order in list responses
type OrderListItemResponse struct {
	ID            uuid.UUID         `json:"id"`
	OrderNumber   string            `json:"order_number"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Total         valueobject.Money `json:"total"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ToOrderItemResponses converts order lines
func ToOrderItemResponses(lines []order.Line) []OrderItemResponse {
	items := make([]OrderItemResponse, len(lines))
	for i, l := range lines {
		items[i] = OrderItemResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		}
	}
	return items
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		Shipping:        o.Shipping,
		Discount:        o.Discount,
		Total:           o.Total,
		CouponID:        o.CouponID,
		CartID:          o.CartID,
		Items:           ToOrderItemResponses(o.Lines),
		ItemCount:       o.ItemCount(),
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ToOrderListItemResponse converts a domain order to a list item
func ToOrderListItemResponse(o *order.Order) OrderListItemResponse {
	return OrderListItemResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total,
		CreatedAt:     o.CreatedAt,
	}
}
