package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// Refund reverses all or part of a completed payment.
type Refund struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID     uuid.UUID          `gorm:"column:payment_id;type:uuid;not null;index:refunds_payment_id_idx"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string             `gorm:"column:currency;type:char(3);not null"`
	Reason        string             `gorm:"column:reason;not null"`
	Status        enums.RefundStatus `gorm:"column:status;type:text;not null;default:'REQUESTED'"`
	TransactionID *string            `gorm:"column:transaction_id"`
	FailureReason *string            `gorm:"column:failure_reason"`
	RequestedAt   time.Time          `gorm:"column:requested_at;not null"`
	ProcessedAt   *time.Time         `gorm:"column:processed_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
