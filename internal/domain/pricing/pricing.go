// Package pricing holds the pure money functions shared by carts and orders.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// TaxRatePercent is the flat sales tax applied to every order subtotal
var TaxRatePercent = decimal.NewFromInt(15)

// ShippingFlatRate is charged once per order
var ShippingFlatRate = valueobject.MustMoney("10.00")

// LineSubtotal returns quantity * unitPrice
func LineSubtotal(quantity int, unitPrice valueobject.Money) (valueobject.Money, error) {
	if quantity < 0 {
		return valueobject.Zero(), shared.NewDomainError(shared.CodeInvalidInput, "Quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return valueobject.Zero(), shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
	}
	return unitPrice.MultiplyByInt(int64(quantity)).Rounded(), nil
}

// OrderTax returns the flat-rate tax on subtotal
func OrderTax(subtotal valueobject.Money) valueobject.Money {
	return subtotal.CalculatePercentage(TaxRatePercent).Rounded()
}

// OrderTotal returns subtotal + tax + shipping - discount, never below zero
func OrderTotal(subtotal, tax, shipping, discount valueobject.Money) valueobject.Money {
	return subtotal.Add(tax).Add(shipping).Subtract(discount).NonNegative().Rounded()
}

// Totals is a computed breakdown of an order's amounts
type Totals struct {
	Subtotal valueobject.Money
	Tax      valueobject.Money
	Shipping valueobject.Money
	Discount valueobject.Money
	Total    valueobject.Money
}

// Compute derives tax and total from a subtotal, shipping and discount
func Compute(subtotal, shipping, discount valueobject.Money) Totals {
	tax := OrderTax(subtotal)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    OrderTotal(subtotal, tax, shipping, discount),
	}
}
