package vehicles

import (
	"context"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a vehicles repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *repository) Update(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Save(vehicle).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Vehicle{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Vehicle, error) {
	query := r.db.WithContext(ctx).Model(&models.Vehicle{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Brand != "" {
		query = query.Where("LOWER(brand) = LOWER(?)", filters.Brand)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	var rows []models.Vehicle
	err = query.
		Scopes(pagination.Keyset(cursor, params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) BookedWindows(ctx context.Context, vehicleID uuid.UUID) ([]BookedWindow, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Select("id", "start_date", "end_date", "status").
		Where("vehicle_id = ? AND status <> ?", vehicleID, enums.ReservationStatusCancelled).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	windows := make([]BookedWindow, 0, len(rows))
	for _, row := range rows {
		windows = append(windows, BookedWindow{
			ReservationID: row.ID,
			Window:        Window{Start: row.StartDate, End: row.EndDate},
		})
	}
	return windows, nil
}

func (r *repository) CountOpenReservations(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("vehicle_id = ? AND status IN ?", vehicleID, []enums.ReservationStatus{
			enums.ReservationStatusPending,
			enums.ReservationStatusConfirmed,
		}).
		Count(&count).Error
	return count, err
}
