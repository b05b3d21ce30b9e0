package reservations

import (
	"context"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists reservations and reads the payment attached to each.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.Reservation) error
	Save(ctx context.Context, reservation *models.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	// FindByIDForUpdate row-locks the reservation for the remainder of the transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Reservation, error)
	// FindPaymentByReservation returns nil, nil when no payment exists yet.
	FindPaymentByReservation(ctx context.Context, reservationID uuid.UUID) (*models.Payment, error)
	FindVehiclePrice(ctx context.Context, vehicleID uuid.UUID) (decimal.Decimal, error)
	FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error)
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error)
}

// Refunder refunds a completed payment in full before a cancellation.
type Refunder interface {
	RefundForCancellation(ctx context.Context, actor auth.Principal, paymentID uuid.UUID, reason string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
