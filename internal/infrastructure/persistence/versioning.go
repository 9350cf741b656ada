package persistence

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// updateVersioned applies updates to the row of model's table matching id and
// version, and bumps the stored version. It reports whether a row matched.
func updateVersioned(tx *gorm.DB, model any, id uuid.UUID, version int, updates map[string]any) (bool, error) {
	updates["version"] = version + 1
	result := tx.Model(model).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// rowExists checks whether a live row with id exists in model's table
func rowExists(tx *gorm.DB, model any, id uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// staleVersion is returned when a versioned update matched no row although
// the row exists
func staleVersion(kind string) error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict, "The "+kind+" has been modified by another request")
}
