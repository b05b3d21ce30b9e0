package testimonials

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *models.Testimonial) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Testimonial, error) {
	var t models.Testimonial
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Testimonial{}, "id = ?", id).Error
}

// List returns testimonials newest first, optionally narrowed to one vehicle.
func (r *Repository) List(ctx context.Context, vehicleID *uuid.UUID, params pagination.Params) ([]models.Testimonial, error) {
	query := r.db.WithContext(ctx).Model(&models.Testimonial{})
	if vehicleID != nil {
		query = query.Where("vehicle_id = ?", *vehicleID)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	var rows []models.Testimonial
	err = query.
		Scopes(pagination.Keyset(cursor, params.Limit)).
		Find(&rows).Error
	return rows, err
}
