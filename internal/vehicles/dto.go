package vehicles

import (
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateVehicleInput carries the attributes for a new fleet vehicle.
type CreateVehicleInput struct {
	Brand        string
	Model        string
	Year         int
	LicensePlate string
	FuelType     enums.FuelType
	Mileage      int
	PricePerDay  decimal.Decimal
	Status       enums.VehicleStatus
	ImageURL     *string
	Description  *string
}

// UpdateVehicleInput is a partial update; nil fields are left untouched.
type UpdateVehicleInput struct {
	ID           uuid.UUID
	Brand        *string
	Model        *string
	Year         *int
	LicensePlate *string
	FuelType     *enums.FuelType
	Mileage      *int
	PricePerDay  *decimal.Decimal
	Status       *enums.VehicleStatus
	ImageURL     *string
	Description  *string
}

type ListFilters struct {
	Status *enums.VehicleStatus
	Brand  string
}

// VehicleDTO is the API projection of a vehicle.
type VehicleDTO struct {
	ID           uuid.UUID           `json:"id"`
	Brand        string              `json:"brand"`
	Model        string              `json:"model"`
	Year         int                 `json:"year"`
	LicensePlate string              `json:"licensePlate"`
	FuelType     enums.FuelType      `json:"fuelType"`
	Mileage      int                 `json:"mileage"`
	PricePerDay  decimal.Decimal     `json:"pricePerDay"`
	Status       enums.VehicleStatus `json:"status"`
	ImageURL     *string             `json:"imageUrl,omitempty"`
	Description  *string             `json:"description,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type VehicleList struct {
	Vehicles   []VehicleDTO `json:"vehicles"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// AvailabilityDTO answers an availability query for one window.
type AvailabilityDTO struct {
	VehicleID uuid.UUID `json:"vehicleId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Available bool      `json:"available"`
}

// ToDTO projects a vehicle row for the API.
func ToDTO(v models.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:           v.ID,
		Brand:        v.Brand,
		Model:        v.Model,
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
		FuelType:     v.FuelType,
		Mileage:      v.Mileage,
		PricePerDay:  v.PricePerDay,
		Status:       v.Status,
		ImageURL:     v.ImageURL,
		Description:  v.Description,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}
