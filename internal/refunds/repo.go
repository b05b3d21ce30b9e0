package refunds

import (
	"context"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.Refund) error
	Save(ctx context.Context, refund *models.Refund) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Refund, error)
	// FindRequested returns the in-flight refund for a payment, or nil.
	FindRequested(ctx context.Context, paymentID uuid.UUID) (*models.Refund, error)
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

func (r *repository) Create(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) Save(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Save(refund).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Refund, error) {
	var out []models.Refund
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("requested_at DESC").
		Find(&out).Error
	return out, err
}

// FindRequested returns the refund still awaiting the provider, or nil. A
// miss is the normal case, so it avoids First and its not-found log line.
func (r *repository) FindRequested(ctx context.Context, paymentID uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	res := r.db.WithContext(ctx).
		Where("payment_id = ? AND status = ?", paymentID, enums.RefundStatusRequested).
		Limit(1).
		Find(&refund)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &refund, nil
}
