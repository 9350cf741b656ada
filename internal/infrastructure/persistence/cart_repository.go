package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func preloadCartItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func cartNotFound() error {
	return shared.NewDomainError(shared.CodeNotFound, "Cart not found")
}

// FindByID finds a cart with its lines
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	var model models.CartModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadCartItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cartNotFound()
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds the single active cart of identity. A user identity is
// looked up by user; otherwise the session token is used.
func (r *GormCartRepository) FindActive(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", preloadCartItems).
		Where("status = ?", cart.StatusActive)
	switch {
	case identity.IsAuthenticated():
		query = query.Where("user_id = ?", *identity.UserID)
	case identity.SessionID != "":
		query = query.Where("session_id = ? AND user_id IS NULL", identity.SessionID)
	default:
		return nil, cartNotFound()
	}

	var model models.CartModel
	if err := query.Order("created_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cartNotFound()
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CreateIfAbsent inserts c unless its owner already has an active cart, and
// returns the owner's active cart afterwards. The unique indexes on active
// carts turn a concurrent insert into a no-op instead of a second cart.
func (r *GormCartRepository) CreateIfAbsent(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	model := models.CartModelFromDomain(c)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Items").
		Create(model).Error; err != nil {
		return nil, err
	}
	return r.FindActive(ctx, cart.Identity{UserID: c.UserID, SessionID: c.SessionID})
}

// Save persists the cart with an optimistic version check and reconciles
// its lines in one transaction
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.CartModelFromDomain(c)
		matched, err := updateVersioned(tx, &models.CartModel{}, c.ID, c.Version, map[string]any{
			"user_id":    model.UserID,
			"session_id": model.SessionID,
			"status":     model.Status,
			"expires_at": model.ExpiresAt,
			"metadata":   model.MetadataJSON,
			"updated_at": model.UpdatedAt,
		})
		if err != nil {
			return err
		}

		if !matched {
			exists, err := rowExists(tx, &models.CartModel{}, c.ID)
			if err != nil {
				return err
			}
			if exists {
				return staleVersion("cart")
			}
			if err := tx.Omit("Items").Create(model).Error; err != nil {
				return err
			}
		}

		if err := r.saveItems(tx, c.ID, model.Items); err != nil {
			return err
		}
		if matched {
			c.Version++
		}
		return nil
	})
}

func (r *GormCartRepository) saveItems(tx *gorm.DB, cartID uuid.UUID, items []models.CartItemModel) error {
	keep := make([]uuid.UUID, len(items))
	for i := range items {
		keep[i] = items[i].ID
	}

	stale := tx.Where("cart_id = ?", cartID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.CartItemModel{}).Error; err != nil {
		return err
	}

	for i := range items {
		if err := tx.Save(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete soft-deletes a cart and its lines
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.CartModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return cartNotFound()
		}
		return nil
	})
}

// AbandonExpired marks up to limit active carts that expired before now as
// abandoned, returning how many were changed
func (r *GormCartRepository) AbandonExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	db := r.db.WithContext(ctx)
	expired := db.Model(&models.CartModel{}).
		Select("id").
		Where("status = ? AND expires_at < ?", cart.StatusActive, now).
		Order("expires_at ASC").
		Limit(limit)

	result := db.Model(&models.CartModel{}).
		Where("id IN (?)", expired).
		Updates(map[string]any{
			"status":     cart.StatusAbandoned,
			"updated_at": now,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormCartRepository implements cart.Repository
var _ cart.Repository = (*GormCartRepository)(nil)
