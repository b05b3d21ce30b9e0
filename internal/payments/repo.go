package payments

import (
	"context"
	"errors"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists payments. Lookups return nil, nil when nothing matches
// except FindByID, which surfaces gorm.ErrRecordNotFound.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByReservation(ctx context.Context, reservationID uuid.UUID) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, provider enums.PaymentProvider, transactionID string) (*models.Payment, error)
	// Save inserts a payment without an id and updates it otherwise.
	Save(ctx context.Context, payment *models.Payment) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByReservation(ctx context.Context, reservationID uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "reservation_id = ?", reservationID)
}

func (r *repository) FindByTransactionID(ctx context.Context, provider enums.PaymentProvider, transactionID string) (*models.Payment, error) {
	return r.first(ctx, "provider = ? AND transaction_id = ?", provider, transactionID)
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where(query, args...).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Save(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		return r.db.WithContext(ctx).Create(payment).Error
	}
	return r.db.WithContext(ctx).Save(payment).Error
}
