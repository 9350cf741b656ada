package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced    = "OrderPlaced"
	EventTypeOrderCancelled = "OrderCancelled"
	EventTypeOrderDeleted   = "OrderDeleted"
)

// LineInfo is the line snapshot carried by order events
type LineInfo struct {
	LineID    uuid.UUID       `json:"line_id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func lineInfos(o *Order) []LineInfo {
	infos := make([]LineInfo, len(o.Lines))
	for i, l := range o.Lines {
		infos[i] = LineInfo{
			LineID:    l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Amount(),
		}
	}
	return infos
}

// PlacedEvent is raised when an order has been created and committed
type PlacedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	CouponID    *uuid.UUID      `json:"coupon_id,omitempty"`
	CartID      *uuid.UUID      `json:"cart_id,omitempty"`
	Lines       []LineInfo      `json:"lines"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// NewPlacedEvent creates a PlacedEvent from the order's current state
func NewPlacedEvent(o *Order) *PlacedEvent {
	return &PlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID, time.Now()),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		CouponID:        o.CouponID,
		CartID:          o.CartID,
		Lines:           lineInfos(o),
		Discount:        o.Discount.Amount(),
		Total:           o.Total.Amount(),
	}
}

// CancelledEvent is raised when an order moves to cancelled
type CancelledEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Lines       []LineInfo      `json:"lines"`
	Total       decimal.Decimal `json:"total"`
}

// NewCancelledEvent creates a CancelledEvent
func NewCancelledEvent(o *Order) *CancelledEvent {
	return &CancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID, time.Now()),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Lines:           lineInfos(o),
		Total:           o.Total.Amount(),
	}
}

// DeletedEvent is raised when a pending order is deleted
type DeletedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	Lines       []LineInfo `json:"lines"`
}

// NewDeletedEvent creates a DeletedEvent
func NewDeletedEvent(o *Order) *DeletedEvent {
	return &DeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeleted, AggregateTypeOrder, o.ID, time.Now()),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Lines:           lineInfos(o),
	}
}
