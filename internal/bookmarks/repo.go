package bookmarks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

// Repository persists bookmarks.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, bookmark *models.Bookmark) error {
	return r.db.WithContext(ctx).Create(bookmark).Error
}

func (r *Repository) Find(ctx context.Context, userID, vehicleID uuid.UUID) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND vehicle_id = ?", userID, vehicleID).
		First(&bookmark).Error
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (r *Repository) UpdateNote(ctx context.Context, id uuid.UUID, note *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("id = ?", id).
		Update("note", note).Error
}

func (r *Repository) Delete(ctx context.Context, userID, vehicleID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND vehicle_id = ?", userID, vehicleID).
		Delete(&models.Bookmark{})
	return res.RowsAffected, res.Error
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Bookmark, error) {
	query := r.db.WithContext(ctx).Model(&models.Bookmark{}).Where("user_id = ?", userID)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	var rows []models.Bookmark
	err = query.
		Scopes(pagination.Keyset(cursor, params.Limit)).
		Find(&rows).Error
	return rows, err
}
