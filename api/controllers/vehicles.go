package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/api/validators"
	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

type vehicleCreateRequest struct {
	Brand        string              `json:"brand" validate:"required,max=100"`
	Model        string              `json:"model" validate:"required,max=100"`
	Year         int                 `json:"year" validate:"required"`
	LicensePlate string              `json:"licensePlate" validate:"required,max=20"`
	FuelType     enums.FuelType      `json:"fuelType" validate:"required"`
	Mileage      int                 `json:"mileage" validate:"min=0"`
	PricePerDay  decimal.Decimal     `json:"pricePerDay"`
	Status       enums.VehicleStatus `json:"status,omitempty"`
	ImageURL     *string             `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Description  *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type vehicleUpdateRequest struct {
	Brand        *string              `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model        *string              `json:"model,omitempty" validate:"omitempty,max=100"`
	Year         *int                 `json:"year,omitempty"`
	LicensePlate *string              `json:"licensePlate,omitempty" validate:"omitempty,max=20"`
	FuelType     *enums.FuelType      `json:"fuelType,omitempty"`
	Mileage      *int                 `json:"mileage,omitempty" validate:"omitempty,min=0"`
	PricePerDay  *decimal.Decimal     `json:"pricePerDay,omitempty"`
	Status       *enums.VehicleStatus `json:"status,omitempty"`
	ImageURL     *string              `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Description  *string              `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// VehicleList is public; ?status= and ?brand= narrow the listing.
func VehicleList(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := vehicles.ListFilters{Brand: strings.TrimSpace(r.URL.Query().Get("brand"))}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.VehicleStatus(strings.ToUpper(raw))
			filters.Status = &status
		}
		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func VehicleGet(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicle, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicle)
	}
}

// VehicleAvailability answers GET /vehicles/{id}/availability?start=&end=.
func VehicleAvailability(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryTime(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Availability(r.Context(), id, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func VehicleCreate(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body vehicleCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicle, err := svc.Create(r.Context(), vehicles.CreateVehicleInput{
			Brand:        body.Brand,
			Model:        body.Model,
			Year:         body.Year,
			LicensePlate: body.LicensePlate,
			FuelType:     body.FuelType,
			Mileage:      body.Mileage,
			PricePerDay:  body.PricePerDay,
			Status:       body.Status,
			ImageURL:     body.ImageURL,
			Description:  body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vehicle)
	}
}

func VehicleUpdate(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body vehicleUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicle, err := svc.Update(r.Context(), vehicles.UpdateVehicleInput{
			ID:           id,
			Brand:        body.Brand,
			Model:        body.Model,
			Year:         body.Year,
			LicensePlate: body.LicensePlate,
			FuelType:     body.FuelType,
			Mileage:      body.Mileage,
			PricePerDay:  body.PricePerDay,
			Status:       body.Status,
			ImageURL:     body.ImageURL,
			Description:  body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicle)
	}
}

func VehicleDelete(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vehicle service unavailable"))
			return
		}
		id, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
