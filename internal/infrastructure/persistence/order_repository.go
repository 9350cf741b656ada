package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadOrderItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadOrderItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Order not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds an order by its number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadOrderItems).
		Where("order_number = ?", orderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Order not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of orders (without lines) and the total count.
// ToDate is inclusive of the whole day.
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at < ?", filter.ToDate.AddDate(0, 0, 1))
	}
	if filter.Search != "" {
		query = query.Where("LOWER(order_number) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Save creates an order or updates it with an optimistic version check,
// then reconciles its lines: rows of removed lines are deleted and the
// remaining lines are upserted.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(o)
		matched, err := updateVersioned(tx, &models.OrderModel{}, o.ID, o.Version, map[string]any{
			"status":           model.Status,
			"payment_status":   model.PaymentStatus,
			"payment_method":   model.PaymentMethod,
			"shipping_address": model.ShippingAddress,
			"billing_address":  model.BillingAddress,
			"subtotal":         model.Subtotal,
			"tax":              model.Tax,
			"shipping":         model.Shipping,
			"discount":         model.Discount,
			"total":            model.Total,
			"coupon_id":        model.CouponID,
			"cart_id":          model.CartID,
			"updated_at":       model.UpdatedAt,
		})
		if err != nil {
			return err
		}

		if !matched {
			exists, err := rowExists(tx, &models.OrderModel{}, o.ID)
			if err != nil {
				return err
			}
			if exists {
				return staleVersion("order")
			}
			if err := tx.Omit("Items").Create(model).Error; err != nil {
				return err
			}
		}

		if err := r.saveItems(tx, o.ID, model.Items); err != nil {
			return err
		}
		if matched {
			o.Version++
		}
		return nil
	})
}

func (r *GormOrderRepository) saveItems(tx *gorm.DB, orderID uuid.UUID, items []models.OrderItemModel) error {
	keep := make([]uuid.UUID, len(items))
	for i := range items {
		keep[i] = items[i].ID
	}

	stale := tx.Where("order_id = ?", orderID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.OrderItemModel{}).Error; err != nil {
		return err
	}

	for i := range items {
		if err := tx.Save(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete soft-deletes an order and its lines
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeNotFound, "Order not found")
		}
		return nil
	})
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
