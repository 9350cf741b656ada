package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository reads products and variants
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindVariant finds a variant that belongs to productID
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*Variant, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// SaveVariant creates or updates a variant
	SaveVariant(ctx context.Context, variant *Variant) error
}

// StockOracle reports how many units can currently be sold
type StockOracle interface {
	// AvailableStock returns variant stock when variantID is set, else product stock
	AvailableStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error)
}

// StockMutator applies stock deltas atomically.
// A negative delta that would take stock below zero fails with
// shared.ErrInsufficientStock and changes nothing.
type StockMutator interface {
	AdjustStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, delta int) error
}

// StockRepository reads and adjusts stock
type StockRepository interface {
	StockOracle
	StockMutator
}
