package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository and
// catalog.StockRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Product not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple products by their IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// FindVariant finds a variant that belongs to productID
func (r *GormProductRepository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*catalog.Variant, error) {
	var model models.VariantModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Product variant not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a product with an optimistic version check
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.ProductModelFromDomain(product)
		matched, err := updateVersioned(tx, &models.ProductModel{}, product.ID, product.Version, map[string]any{
			"sku":        model.SKU,
			"name":       model.Name,
			"price":      model.Price,
			"stock":      model.Stock,
			"status":     model.Status,
			"updated_at": model.UpdatedAt,
		})
		if err != nil {
			return err
		}
		if matched {
			product.Version++
			return nil
		}

		exists, err := rowExists(tx, &models.ProductModel{}, product.ID)
		if err != nil {
			return err
		}
		if exists {
			return staleVersion("product")
		}
		return tx.Create(model).Error
	})
}

// SaveVariant creates or updates a variant
func (r *GormProductRepository) SaveVariant(ctx context.Context, variant *catalog.Variant) error {
	return r.db.WithContext(ctx).Save(models.VariantModelFromDomain(variant)).Error
}

// AvailableStock returns variant stock when variantID is set, else product stock
func (r *GormProductRepository) AvailableStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	var stock []int
	query := r.db.WithContext(ctx)
	if variantID != nil {
		query = query.Model(&models.VariantModel{}).Where("id = ? AND product_id = ?", *variantID, productID)
	} else {
		query = query.Model(&models.ProductModel{}).Where("id = ?", productID)
	}
	if err := query.Limit(1).Pluck("stock", &stock).Error; err != nil {
		return 0, err
	}
	if len(stock) == 0 {
		return 0, shared.NewDomainError(shared.CodeNotFound, "Product not found")
	}
	return stock[0], nil
}

// AdjustStock adds delta to the stock of a variant or product in a single
// guarded statement. A delta that would take stock below zero matches no
// row and fails with shared.ErrInsufficientStock.
func (r *GormProductRepository) AdjustStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, delta int) error {
	db := r.db.WithContext(ctx)
	var query *gorm.DB
	if variantID != nil {
		query = db.Model(&models.VariantModel{}).Where("id = ? AND product_id = ?", *variantID, productID)
	} else {
		query = db.Model(&models.ProductModel{}).Where("id = ?", productID)
	}

	result := query.
		Where("stock + ? >= 0", delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if _, err := r.AvailableStock(ctx, productID, variantID); err != nil {
		return err
	}
	return shared.ErrInsufficientStock
}

// Ensure GormProductRepository implements the catalog repositories
var (
	_ catalog.ProductRepository = (*GormProductRepository)(nil)
	_ catalog.StockRepository   = (*GormProductRepository)(nil)
)
