package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is the sellable catalog item the cart and order engines price from.
// Only price and stock matter to them; the rest is display data.
type Product struct {
	shared.BaseAggregateRoot
	SKU    string
	Name   string
	Price  valueobject.Money
	Stock  int
	Status ProductStatus
}

// NewProduct creates a new active product
func NewProduct(sku, name string, price valueobject.Money, stock int) (*Product, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product SKU cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Price cannot be negative")
	}
	if stock < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Stock cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               strings.ToUpper(sku),
		Name:              name,
		Price:             price,
		Stock:             stock,
		Status:            ProductStatusActive,
	}, nil
}

// SetPrice changes the catalog price. Existing cart and order lines keep their snapshot.
func (p *Product) SetPrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Price cannot be negative")
	}
	p.Price = price
	p.UpdatedAt = time.Now()
	return nil
}

// IsActive reports whether the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Variant is a purchasable option of a product with its own stock and an
// optional price override.
type Variant struct {
	shared.BaseEntity
	ProductID uuid.UUID
	SKU       string
	Name      string
	Price     *valueobject.Money
	Stock     int
}

// NewVariant creates a variant of productID
func NewVariant(productID uuid.UUID, sku, name string, price *valueobject.Money, stock int) (*Variant, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Variant must belong to a product")
	}
	if price != nil && price.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Price cannot be negative")
	}
	if stock < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Stock cannot be negative")
	}
	return &Variant{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		SKU:        strings.ToUpper(sku),
		Name:       name,
		Price:      price,
		Stock:      stock,
	}, nil
}

// UnitPrice returns the price a new line snapshots: the variant's price
// when the variant has one, else the product's.
func UnitPrice(product *Product, variant *Variant) valueobject.Money {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	return product.Price
}

// AvailableStock returns variant stock when a variant is given, else product stock
func AvailableStock(product *Product, variant *Variant) int {
	if variant != nil {
		return variant.Stock
	}
	return product.Stock
}
