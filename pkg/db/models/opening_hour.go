package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// OpeningHour holds the counter schedule for one weekday. Times are "HH:MM".
type OpeningHour struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DayOfWeek enums.DayOfWeek `gorm:"column:day_of_week;type:text;not null;uniqueIndex:opening_hours_day_key"`
	OpensAt   string          `gorm:"column:opens_at;type:varchar(5);not null"`
	ClosesAt  string          `gorm:"column:closes_at;type:varchar(5);not null"`
	Closed    bool            `gorm:"column:closed;not null;default:false"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
