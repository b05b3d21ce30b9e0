package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// Reservation books a vehicle for the half-open window [StartDate, EndDate).
type Reservation struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index:reservations_user_id_idx"`
	VehicleID       uuid.UUID               `gorm:"column:vehicle_id;type:uuid;not null;index:reservations_vehicle_id_idx"`
	StartDate       time.Time               `gorm:"column:start_date;not null"`
	EndDate         time.Time               `gorm:"column:end_date;not null"`
	Status          enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Comment         *string                 `gorm:"column:comment"`
	PaymentAttempts int                     `gorm:"column:payment_attempts;not null;default:0"`
	CancelReason    *string                 `gorm:"column:cancel_reason"`
	ConfirmedAt     *time.Time              `gorm:"column:confirmed_at"`
	CancelledAt     *time.Time              `gorm:"column:cancelled_at"`
	CompletedAt     *time.Time              `gorm:"column:completed_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
