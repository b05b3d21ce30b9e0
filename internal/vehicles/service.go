package vehicles

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const minVehicleYear = 1950

// Service exposes fleet management and availability lookups.
type Service interface {
	Create(ctx context.Context, input CreateVehicleInput) (*VehicleDTO, error)
	Update(ctx context.Context, input UpdateVehicleInput) (*VehicleDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*VehicleDTO, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*VehicleList, error)
	Availability(ctx context.Context, vehicleID uuid.UUID, start, end time.Time) (*AvailabilityDTO, error)
}

type service struct {
	repo   Repository
	ledger *Ledger
	now    func() time.Time
}

// NewService wires the fleet service.
func NewService(repo Repository, ledger *Ledger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vehicle repository required")
	}
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "availability ledger required")
	}
	return &service{repo: repo, ledger: ledger, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateVehicleInput) (*VehicleDTO, error) {
	status := input.Status
	if status == "" {
		status = enums.VehicleStatusAvailable
	}
	vehicle := &models.Vehicle{
		Brand:        strings.TrimSpace(input.Brand),
		Model:        strings.TrimSpace(input.Model),
		Year:         input.Year,
		LicensePlate: normalizePlate(input.LicensePlate),
		FuelType:     input.FuelType,
		Mileage:      input.Mileage,
		PricePerDay:  input.PricePerDay,
		Status:       status,
		ImageURL:     input.ImageURL,
		Description:  input.Description,
	}
	if err := s.validate(vehicle); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, vehicle); err != nil {
		return nil, mapWriteError(err, "create vehicle")
	}
	dto := ToDTO(*vehicle)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, input UpdateVehicleInput) (*VehicleDTO, error) {
	vehicle, err := s.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Brand != nil {
		vehicle.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Model != nil {
		vehicle.Model = strings.TrimSpace(*input.Model)
	}
	if input.Year != nil {
		vehicle.Year = *input.Year
	}
	if input.LicensePlate != nil {
		vehicle.LicensePlate = normalizePlate(*input.LicensePlate)
	}
	if input.FuelType != nil {
		vehicle.FuelType = *input.FuelType
	}
	if input.Mileage != nil {
		if *input.Mileage < vehicle.Mileage {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "mileage cannot decrease")
		}
		vehicle.Mileage = *input.Mileage
	}
	if input.PricePerDay != nil {
		vehicle.PricePerDay = *input.PricePerDay
	}
	if input.Status != nil {
		vehicle.Status = *input.Status
	}
	if input.ImageURL != nil {
		vehicle.ImageURL = input.ImageURL
	}
	if input.Description != nil {
		vehicle.Description = input.Description
	}

	if err := s.validate(vehicle); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, vehicle); err != nil {
		return nil, mapWriteError(err, "update vehicle")
	}
	dto := ToDTO(*vehicle)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	open, err := s.repo.CountOpenReservations(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open reservations")
	}
	if open > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle has open reservations").
			WithDetails(map[string]any{"openReservations": open})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vehicle")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*VehicleDTO, error) {
	vehicle, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*vehicle)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*VehicleList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle status filter")
	}
	rows, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vehicles")
	}
	page, next := pagination.Trim(rows, params.Limit, func(v models.Vehicle) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	out := &VehicleList{Vehicles: make([]VehicleDTO, 0, len(page)), NextCursor: next}
	for _, v := range page {
		out.Vehicles = append(out.Vehicles, ToDTO(v))
	}
	return out, nil
}

func (s *service) Availability(ctx context.Context, vehicleID uuid.UUID, start, end time.Time) (*AvailabilityDTO, error) {
	available, err := s.ledger.CheckAvailability(ctx, vehicleID, start, end)
	if err != nil {
		return nil, err
	}
	return &AvailabilityDTO{
		VehicleID: vehicleID,
		StartDate: start.UTC(),
		EndDate:   end.UTC(),
		Available: available,
	}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	return vehicle, nil
}

func (s *service) validate(v *models.Vehicle) error {
	fields := map[string]string{}
	if v.Brand == "" {
		fields["brand"] = "required"
	}
	if v.Model == "" {
		fields["model"] = "required"
	}
	if v.LicensePlate == "" {
		fields["licensePlate"] = "required"
	}
	if v.Year < minVehicleYear || v.Year > s.now().Year()+1 {
		fields["year"] = "out of range"
	}
	if !v.FuelType.IsValid() {
		fields["fuelType"] = "invalid"
	}
	if !v.Status.IsValid() {
		fields["status"] = "invalid"
	}
	if v.Mileage < 0 {
		fields["mileage"] = "must be non-negative"
	}
	if !v.PricePerDay.GreaterThan(decimal.Zero) || !v.PricePerDay.Equal(v.PricePerDay.Round(2)) {
		fields["pricePerDay"] = "must be positive with at most 2 decimals"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle").WithDetails(fields)
	}
	return nil
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "license plate already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
