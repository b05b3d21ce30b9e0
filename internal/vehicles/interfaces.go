package vehicles

import (
	"context"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the vehicles table and the
// reservation windows booked against it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vehicle *models.Vehicle) error
	Update(ctx context.Context, vehicle *models.Vehicle) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	// FindByIDForUpdate row-locks the vehicle for the remainder of the transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Vehicle, error)
	// BookedWindows returns every non-cancelled reservation window for the vehicle.
	BookedWindows(ctx context.Context, vehicleID uuid.UUID) ([]BookedWindow, error)
	CountOpenReservations(ctx context.Context, vehicleID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
