package order

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(uuid.New(), "1 Main St", "1 Main St", "card")
	require.NoError(t, err)
	return o
}

func newProduct(t *testing.T, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("sku-"+uuid.NewString()[:8], "Widget", valueobject.MustMoney(price), stock)
	require.NoError(t, err)
	return p
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewOrder(t *testing.T) {
	t.Run("starts pending with flat shipping", func(t *testing.T) {
		o := newTestOrder(t)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
		assert.Equal(t, "10.00", o.Shipping.String())
		assert.Equal(t, "10.00", o.Total.String())
		assert.True(t, strings.HasPrefix(o.OrderNumber, NumberPrefix))
		assert.Equal(t, strings.ToUpper(o.OrderNumber), o.OrderNumber)
	})

	t.Run("numbers are unique", func(t *testing.T) {
		assert.NotEqual(t, NewNumber(), NewNumber())
	})

	t.Run("requires addresses", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), "", "x", "card")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestOrder_AddLine(t *testing.T) {
	o := newTestOrder(t)
	p := newProduct(t, "20.00", 5)

	line, err := o.AddLine(p, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, "20.00", line.UnitPrice.String())
	assert.Equal(t, "40.00", line.Subtotal.String())
	assert.Equal(t, "Widget", line.ProductName)

	assert.Equal(t, "40.00", o.Subtotal.String())
	assert.Equal(t, "6.00", o.Tax.String())
	assert.Equal(t, "56.00", o.Total.String())

	t.Run("variant price override", func(t *testing.T) {
		price := valueobject.MustMoney("30.00")
		v, err := catalog.NewVariant(p.ID, "l", "Large", &price, 2)
		require.NoError(t, err)
		line, err := o.AddLine(p, v, 1)
		require.NoError(t, err)
		assert.Equal(t, "30.00", line.UnitPrice.String())
		assert.Equal(t, "Widget - Large", line.ProductName)
		assert.Equal(t, "70.00", o.Subtotal.String())
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := o.AddLine(p, nil, 0)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestOrder_RemoveLine(t *testing.T) {
	o := newTestOrder(t)
	p := newProduct(t, "10.00", 10)
	a, _ := o.AddLine(p, nil, 3)
	aID := a.ID
	_, _ = o.AddLine(p, nil, 5)

	removed, err := o.RemoveLine(aID)
	require.NoError(t, err)
	assert.Equal(t, 3, removed.Quantity)
	assert.Equal(t, "50.00", o.Subtotal.String())

	_, err = o.RemoveLine(uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestOrder_NonPendingRejectsLineChanges(t *testing.T) {
	o := newTestOrder(t)
	p := newProduct(t, "10.00", 10)
	line, _ := o.AddLine(p, nil, 1)
	lineID := line.ID
	require.NoError(t, o.UpdateStatus(StatusProcessing))

	_, err := o.AddLine(p, nil, 1)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	_, err = o.RemoveLine(lineID)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.True(t, errors.Is(o.AttachCoupon(uuid.New(), valueobject.MustMoney("1")), shared.ErrInvalidState))
	assert.False(t, o.CanDelete())
	assert.True(t, errors.Is(o.MarkDeleted(), shared.ErrInvalidState))
}

func TestOrder_RecalculateTotal(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		o := newTestOrder(t)
		_, _ = o.AddLine(newProduct(t, "33.33", 10), nil, 3)
		require.NoError(t, o.AttachCoupon(uuid.New(), valueobject.MustMoney("5.00")))

		o.RecalculateTotal()
		first := []string{o.Subtotal.String(), o.Tax.String(), o.Total.String()}
		o.RecalculateTotal()
		assert.Equal(t, first, []string{o.Subtotal.String(), o.Tax.String(), o.Total.String()})
		assert.Equal(t, "99.99", o.Subtotal.String())
		assert.Equal(t, "15.00", o.Tax.String())
		assert.Equal(t, "119.99", o.Total.String())
	})

	t.Run("zero discount keeps small order total", func(t *testing.T) {
		o := newTestOrder(t)
		_, _ = o.AddLine(newProduct(t, "20.00", 10), nil, 1)
		require.NoError(t, o.AttachCoupon(uuid.New(), valueobject.Zero()))
		assert.Equal(t, "20.00", o.Subtotal.String())
		assert.Equal(t, "3.00", o.Tax.String())
		assert.Equal(t, "33.00", o.Total.String())
	})

	t.Run("total never negative", func(t *testing.T) {
		o := newTestOrder(t)
		_, _ = o.AddLine(newProduct(t, "1.00", 10), nil, 1)
		require.NoError(t, o.AttachCoupon(uuid.New(), valueobject.MustMoney("500")))
		assert.True(t, o.Total.IsZero())
	})
}

func TestOrder_UpdateStatus(t *testing.T) {
	t.Run("cancel raises event", func(t *testing.T) {
		o := newTestOrder(t)
		_, _ = o.AddLine(newProduct(t, "10.00", 10), nil, 2)
		require.NoError(t, o.UpdateStatus(StatusCancelled))

		events := o.PullDomainEvents()
		require.Len(t, events, 1)
		cancelled, ok := events[0].(*CancelledEvent)
		require.True(t, ok)
		require.Len(t, cancelled.Lines, 1)
		assert.Equal(t, 2, cancelled.Lines[0].Quantity)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.UpdateStatus(StatusPending))
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("illegal transition", func(t *testing.T) {
		o := newTestOrder(t)
		err := o.UpdateStatus(StatusCompleted)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("unknown status", func(t *testing.T) {
		o := newTestOrder(t)
		assert.True(t, errors.Is(o.UpdateStatus("shipped"), shared.ErrInvalidInput))
	})
}

func TestOrder_PaymentAndAddresses(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.UpdatePaymentStatus(PaymentStatusPaid))
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.True(t, errors.Is(o.UpdatePaymentStatus("refunded"), shared.ErrInvalidInput))

	require.NoError(t, o.UpdateAddresses("2 Side St", ""))
	assert.Equal(t, "2 Side St", o.ShippingAddress)
	assert.Equal(t, "1 Main St", o.BillingAddress)

	require.NoError(t, o.UpdateStatus(StatusCancelled))
	assert.True(t, errors.Is(o.UpdateAddresses("x", "y"), shared.ErrInvalidState))
}
