package telemetry

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrCouponApplied = attribute.Key("coupon_applied")
	AttrFromCart      = attribute.Key("from_cart")
)

// CommerceMetrics records order and cart activity. It subscribes to order
// events on the bus and is also called directly by the cart sweeper.
type CommerceMetrics struct {
	ordersPlaced    metric.Int64Counter
	orderAmount     metric.Float64Histogram
	ordersCancelled metric.Int64Counter
	ordersDeleted   metric.Int64Counter
	discountTotal   metric.Float64Counter
	cartsAbandoned  metric.Int64Counter
}

// NewCommerceMetrics creates the instruments on meter
func NewCommerceMetrics(meter metric.Meter) (*CommerceMetrics, error) {
	m := &CommerceMetrics{}
	var err error

	if m.ordersPlaced, err = meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders committed"),
		metric.WithUnit("{order}"),
	); err != nil {
		return nil, fmt.Errorf("orders.placed: %w", err)
	}
	if m.orderAmount, err = meter.Float64Histogram("storefront.orders.amount",
		metric.WithDescription("Grand total of committed orders"),
		metric.WithUnit("{currency}"),
		metric.WithExplicitBucketBoundaries(10, 25, 50, 100, 250, 500, 1000, 2500),
	); err != nil {
		return nil, fmt.Errorf("orders.amount: %w", err)
	}
	if m.ordersCancelled, err = meter.Int64Counter("storefront.orders.cancelled",
		metric.WithDescription("Orders moved to cancelled"),
		metric.WithUnit("{order}"),
	); err != nil {
		return nil, fmt.Errorf("orders.cancelled: %w", err)
	}
	if m.ordersDeleted, err = meter.Int64Counter("storefront.orders.deleted",
		metric.WithDescription("Pending orders deleted"),
		metric.WithUnit("{order}"),
	); err != nil {
		return nil, fmt.Errorf("orders.deleted: %w", err)
	}
	if m.discountTotal, err = meter.Float64Counter("storefront.coupons.discount",
		metric.WithDescription("Discount granted by coupons"),
		metric.WithUnit("{currency}"),
	); err != nil {
		return nil, fmt.Errorf("coupons.discount: %w", err)
	}
	if m.cartsAbandoned, err = meter.Int64Counter("storefront.carts.abandoned",
		metric.WithDescription("Expired carts marked abandoned by the sweeper"),
		metric.WithUnit("{cart}"),
	); err != nil {
		return nil, fmt.Errorf("carts.abandoned: %w", err)
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *CommerceMetrics) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderDeleted,
	}
}

// Handle implements shared.EventHandler
func (m *CommerceMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.PlacedEvent:
		attrs := metric.WithAttributes(
			AttrCouponApplied.Bool(e.CouponID != nil),
			AttrFromCart.Bool(e.CartID != nil),
		)
		m.ordersPlaced.Add(ctx, 1, attrs)
		m.orderAmount.Record(ctx, e.Total.InexactFloat64(), attrs)
		if e.Discount.IsPositive() {
			m.discountTotal.Add(ctx, e.Discount.InexactFloat64())
		}
	case *order.CancelledEvent:
		m.ordersCancelled.Add(ctx, 1)
	case *order.DeletedEvent:
		m.ordersDeleted.Add(ctx, 1)
	}
	return nil
}

// CartsAbandoned records carts swept to abandoned
func (m *CommerceMetrics) CartsAbandoned(ctx context.Context, n int64) {
	if n > 0 {
		m.cartsAbandoned.Add(ctx, n)
	}
}

var _ shared.EventHandler = (*CommerceMetrics)(nil)
