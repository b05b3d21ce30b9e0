package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// Vehicle is a rentable fleet unit. License plates are unique system-wide.
type Vehicle struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Brand        string              `gorm:"column:brand;not null"`
	Model        string              `gorm:"column:model;not null"`
	Year         int                 `gorm:"column:year;not null"`
	LicensePlate string              `gorm:"column:license_plate;not null;uniqueIndex:vehicles_license_plate_key"`
	FuelType     enums.FuelType      `gorm:"column:fuel_type;type:text;not null"`
	Mileage      int                 `gorm:"column:mileage;not null;default:0"`
	PricePerDay  decimal.Decimal     `gorm:"column:price_per_day;type:numeric(12,2);not null"`
	Status       enums.VehicleStatus `gorm:"column:status;type:text;not null;default:'AVAILABLE'"`
	ImageURL     *string             `gorm:"column:image_url"`
	Description  *string             `gorm:"column:description"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
