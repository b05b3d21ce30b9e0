package models

import (
	"time"

	"github.com/google/uuid"
)

type Bookmark struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:bookmarks_user_vehicle_key"`
	VehicleID uuid.UUID `gorm:"column:vehicle_id;type:uuid;not null;uniqueIndex:bookmarks_user_vehicle_key"`
	Note      *string   `gorm:"column:note"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
