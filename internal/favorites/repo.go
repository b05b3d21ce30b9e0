package favorites

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

// Repository encapsulates favorites persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a favorites repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts a favorite; a repeated (user, vehicle) pair surfaces the unique
// constraint error to the caller.
func (r *Repository) Add(ctx context.Context, userID, vehicleID uuid.UUID) (*models.Favorite, error) {
	if userID == uuid.Nil || vehicleID == uuid.Nil {
		return nil, gorm.ErrInvalidValue
	}
	fav := &models.Favorite{UserID: userID, VehicleID: vehicleID}
	if err := r.db.WithContext(ctx).Create(fav).Error; err != nil {
		return nil, err
	}
	return fav, nil
}

// Remove deletes the user-vehicle favorite and reports whether a row existed.
func (r *Repository) Remove(ctx context.Context, userID, vehicleID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND vehicle_id = ?", userID, vehicleID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List returns up to limit+1 favorites for the user, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Favorite, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID)

	var rows []models.Favorite
	err := query.
		Scopes(pagination.Keyset(cursor, limit)).
		Find(&rows).Error
	return rows, err
}

// Count returns how many favorites the user holds.
func (r *Repository) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return count, nil
}

// VehiclesByID loads the vehicles referenced by a page of favorites.
func (r *Repository) VehiclesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Vehicle, error) {
	out := make(map[uuid.UUID]models.Vehicle, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Vehicle
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}
