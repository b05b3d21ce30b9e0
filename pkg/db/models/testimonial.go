package models

import (
	"time"

	"github.com/google/uuid"
)

// Testimonial is a public customer review. Rating is 1..5.
type Testimonial struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:testimonials_user_id_idx"`
	VehicleID *uuid.UUID `gorm:"column:vehicle_id;type:uuid"`
	Rating    int        `gorm:"column:rating;not null"`
	Content   string     `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
