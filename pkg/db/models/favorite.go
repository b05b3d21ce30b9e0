package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite links a user to a liked vehicle.
type Favorite struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:favorites_user_vehicle_key"`
	VehicleID uuid.UUID `gorm:"column:vehicle_id;type:uuid;not null;uniqueIndex:favorites_user_vehicle_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
