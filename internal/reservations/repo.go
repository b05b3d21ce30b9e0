package reservations

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservations repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) Save(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Reservation, error) {
	query := r.db.WithContext(ctx).Model(&models.Reservation{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.VehicleID != nil {
		query = query.Where("vehicle_id = ?", *filters.VehicleID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	var rows []models.Reservation
	err = query.
		Scopes(pagination.Keyset(cursor, params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindPaymentByReservation(ctx context.Context, reservationID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindVehiclePrice(ctx context.Context, vehicleID uuid.UUID) (decimal.Decimal, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).Select("id", "price_per_day").Where("id = ?", vehicleID).First(&vehicle).Error
	if err != nil {
		return decimal.Zero, err
	}
	return vehicle.PricePerDay, nil
}

func (r *repository) FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", enums.ReservationStatusConfirmed, cutoff).
		Order("end_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.ReservationStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
