package pricing

import (
	"errors"
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSubtotal(t *testing.T) {
	t.Run("multiplies quantity by unit price", func(t *testing.T) {
		got, err := LineSubtotal(3, valueobject.MustMoney("49.99"))
		require.NoError(t, err)
		assert.Equal(t, "149.97", got.String())
	})

	t.Run("zero quantity is zero", func(t *testing.T) {
		got, err := LineSubtotal(0, valueobject.MustMoney("49.99"))
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := LineSubtotal(-1, valueobject.MustMoney("1"))
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := LineSubtotal(1, valueobject.MustMoney("-1"))
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestOrderTax(t *testing.T) {
	assert.Equal(t, "3.00", OrderTax(valueobject.MustMoney("20.00")).String())
	assert.Equal(t, "15.00", OrderTax(valueobject.MustMoney("100")).String())
	// 0.15 * 0.99 = 0.1485
	assert.Equal(t, "0.15", OrderTax(valueobject.MustMoney("0.99")).String())
}

func TestOrderTotal(t *testing.T) {
	t.Run("sums components", func(t *testing.T) {
		total := OrderTotal(
			valueobject.MustMoney("20.00"),
			valueobject.MustMoney("3.00"),
			ShippingFlatRate,
			valueobject.Zero(),
		)
		assert.Equal(t, "33.00", total.String())
	})

	t.Run("clamps at zero", func(t *testing.T) {
		total := OrderTotal(
			valueobject.MustMoney("10.00"),
			valueobject.MustMoney("1.50"),
			valueobject.MustMoney("10.00"),
			valueobject.MustMoney("500.00"),
		)
		assert.True(t, total.IsZero())
	})
}

func TestCompute(t *testing.T) {
	totals := Compute(valueobject.MustMoney("100.00"), ShippingFlatRate, valueobject.MustMoney("10.00"))
	assert.Equal(t, "15.00", totals.Tax.String())
	assert.Equal(t, "115.00", totals.Total.String())
}
