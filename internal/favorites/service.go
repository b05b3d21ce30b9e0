package favorites

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

type vehicleLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
}

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	Repo     *Repository
	Vehicles vehicleLookup
}

// Service exposes business rules for a user's favorite vehicles.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoritesPageDTO, error)
	ListIDs(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoriteIDsDTO, error)
	Add(ctx context.Context, userID, vehicleID uuid.UUID) (*FavoriteDTO, error)
	Remove(ctx context.Context, userID, vehicleID uuid.UUID) error
}

type service struct {
	repo     *Repository
	vehicles vehicleLookup
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "favorites repo is required")
	}
	if params.Vehicles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle repo is required")
	}
	return &service{repo: params.Repo, vehicles: params.Vehicles}, nil
}

// List returns the paginated favorites with their vehicles embedded.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoritesPageDTO, error) {
	rows, meta, err := s.page(ctx, userID, params)
	if err != nil {
		return FavoritesPageDTO{}, err
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.VehicleID)
	}
	vehicleRows, err := s.repo.VehiclesByID(ctx, ids)
	if err != nil {
		return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorite vehicles")
	}

	items := make([]FavoriteDTO, 0, len(rows))
	for _, row := range rows {
		item := FavoriteDTO{ID: row.ID, VehicleID: row.VehicleID, CreatedAt: row.CreatedAt}
		if v, ok := vehicleRows[row.VehicleID]; ok {
			dto := vehicles.ToDTO(v)
			item.Vehicle = &dto
		}
		items = append(items, item)
	}
	return FavoritesPageDTO{Items: items, Pagination: meta}, nil
}

// ListIDs returns only the liked vehicle IDs.
func (s *service) ListIDs(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoriteIDsDTO, error) {
	rows, meta, err := s.page(ctx, userID, params)
	if err != nil {
		return FavoriteIDsDTO{}, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.VehicleID)
	}
	return FavoriteIDsDTO{VehicleIDs: ids, Pagination: meta}, nil
}

// Add ensures the vehicle exists and records the favorite.
func (s *service) Add(ctx context.Context, userID, vehicleID uuid.UUID) (*FavoriteDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if vehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}

	fav, err := s.repo.Add(ctx, userID, vehicleID)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vehicle already in favorites")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	dto := vehicles.ToDTO(*vehicle)
	return &FavoriteDTO{ID: fav.ID, Vehicle: &dto, VehicleID: vehicleID, CreatedAt: fav.CreatedAt}, nil
}

// Remove drops the favorite; removing a vehicle that was never liked is a 404.
func (s *service) Remove(ctx context.Context, userID, vehicleID uuid.UUID) error {
	if userID == uuid.Nil || vehicleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and vehicle id are required")
	}
	removed, err := s.repo.Remove(ctx, userID, vehicleID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "favorite not found")
	}
	return nil
}

func (s *service) page(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Favorite, PageMeta, error) {
	if userID == uuid.Nil {
		return nil, PageMeta{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	current := strings.TrimSpace(params.Cursor)
	cursor, err := pagination.ParseCursor(current)
	if err != nil {
		return nil, PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	page, next := pagination.Trim(rows, params.Limit, func(f models.Favorite) pagination.Cursor {
		return pagination.Cursor{CreatedAt: f.CreatedAt, ID: f.ID}
	})
	total, err := s.repo.Count(ctx, userID)
	if err != nil {
		return nil, PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count favorites")
	}
	return page, PageMeta{Total: int(total), Current: current, Next: next}, nil
}
