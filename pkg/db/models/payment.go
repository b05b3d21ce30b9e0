package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// Payment settles exactly one reservation. Once COMPLETED only the move to
// REFUNDED is permitted.
type Payment struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ReservationID   uuid.UUID             `gorm:"column:reservation_id;type:uuid;not null;uniqueIndex:payments_reservation_id_key"`
	Amount          decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        string                `gorm:"column:currency;type:char(3);not null"`
	Status          enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Provider        enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	TransactionID   *string               `gorm:"column:transaction_id"`
	PaymentMethodID *string               `gorm:"column:payment_method_id"`
	FailureReason   *string               `gorm:"column:failure_reason"`
	PaidAt          *time.Time            `gorm:"column:paid_at"`
	RefundedAt      *time.Time            `gorm:"column:refunded_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
