package favorites

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
)

// FavoriteDTO wraps the vehicle a user liked.
type FavoriteDTO struct {
	ID        uuid.UUID            `json:"id"`
	Vehicle   *vehicles.VehicleDTO `json:"vehicle,omitempty"`
	VehicleID uuid.UUID            `json:"vehicleId"`
	CreatedAt time.Time            `json:"createdAt"`
}

// FavoritesPageDTO returns a cursor-paginated favorites view.
type FavoritesPageDTO struct {
	Items      []FavoriteDTO `json:"items"`
	Pagination PageMeta      `json:"pagination"`
}

// FavoriteIDsDTO is a lightweight projection containing only vehicle IDs.
type FavoriteIDsDTO struct {
	VehicleIDs []uuid.UUID `json:"vehicleIds"`
	Pagination PageMeta    `json:"pagination"`
}

// PageMeta mirrors the cursor metadata returned by list endpoints.
type PageMeta struct {
	Total   int    `json:"total"`
	Current string `json:"current,omitempty"`
	Next    string `json:"next,omitempty"`
}
