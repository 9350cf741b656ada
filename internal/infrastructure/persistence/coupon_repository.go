package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCouponRepository implements coupon.Repository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByID finds a coupon by its ID
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	var model models.CouponModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Coupon not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a coupon by its normalized code
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var model models.CouponModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Coupon not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of coupons and the total count
func (r *GormCouponRepository) FindAll(ctx context.Context, filter coupon.ListFilter) ([]coupon.Coupon, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CouponModel{})
	if filter.Search != "" {
		query = query.Where("LOWER(code) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true).
			Where("valid_until IS NULL OR valid_until >= ?", filter.Now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, CouponSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.CouponModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	coupons := make([]coupon.Coupon, len(rows))
	for i := range rows {
		coupons[i] = *rows[i].ToDomain()
	}
	return coupons, total, nil
}

// ExistsByCode checks for a code, ignoring excludeID when set
func (r *GormCouponRepository) ExistsByCode(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.CouponModel{}).Where("code = ?", code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a coupon. Updates never touch times_used, which
// only Redeem changes.
func (r *GormCouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.CouponModelFromDomain(c)
		matched, err := updateVersioned(tx, &models.CouponModel{}, c.ID, c.Version, map[string]any{
			"code":            model.Code,
			"type":            model.Type,
			"value":           model.Value,
			"valid_from":      model.ValidFrom,
			"valid_until":     model.ValidUntil,
			"max_uses":        model.MaxUses,
			"min_order_value": model.MinOrderValue,
			"is_active":       model.IsActive,
			"updated_at":      model.UpdatedAt,
		})
		if err != nil {
			return err
		}
		if matched {
			c.Version++
			return nil
		}

		exists, err := rowExists(tx, &models.CouponModel{}, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return staleVersion("coupon")
		}
		// is_active defaults to true; select every column so false is written
		return tx.Select("*").Create(model).Error
	})
}

// Delete soft-deletes a coupon
func (r *GormCouponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CouponModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Coupon not found")
	}
	return nil
}

// Redeem increments times_used in one guarded statement so that concurrent
// redemptions never exceed max_uses.
func (r *GormCouponRepository) Redeem(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.CouponModel{}).
		Where("id = ?", id).
		Where("max_uses IS NULL OR times_used < max_uses").
		UpdateColumn("times_used", gorm.Expr("times_used + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	exists, err := rowExists(db, &models.CouponModel{}, id)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewDomainError(shared.CodeNotFound, "Coupon not found")
	}
	return shared.ErrCouponExhausted
}

// Ensure GormCouponRepository implements coupon.Repository
var _ coupon.Repository = (*GormCouponRepository)(nil)
