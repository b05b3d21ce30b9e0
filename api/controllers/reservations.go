package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/api/validators"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

type reservationCreateRequest struct {
	// UserID defaults to the caller; staff may book on behalf of a customer.
	UserID    *uuid.UUID `json:"userId,omitempty"`
	VehicleID uuid.UUID  `json:"vehicleId" validate:"required"`
	StartDate time.Time  `json:"startDate" validate:"required"`
	EndDate   time.Time  `json:"endDate" validate:"required"`
	Comment   *string    `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

type reservationCancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
	Refund bool   `json:"refund"`
}

func ReservationCreate(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reservationCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := actor.UserID
		if body.UserID != nil && *body.UserID != uuid.Nil {
			userID = *body.UserID
		}
		out, err := svc.Create(r.Context(), actor, reservations.CreateReservationInput{
			UserID:    userID,
			VehicleID: body.VehicleID,
			StartDate: body.StartDate,
			EndDate:   body.EndDate,
			Comment:   body.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// ReservationList returns the caller's reservations. Staff see every
// reservation and may filter by ?userId=.
func ReservationList(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filters reservations.ListFilters
		if filters.UserID, err = validators.ParseQueryUUID(r, "userId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.VehicleID, err = validators.ParseQueryUUID(r, "vehicleId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.ReservationStatus(strings.ToUpper(raw))
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status"))
				return
			}
			filters.Status = &status
		}
		list, err := svc.List(r.Context(), actor, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ReservationGet(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		actor, err := principalFrom(r)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), actor, id)
	})
}

func ReservationConfirm(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		actor, err := principalFrom(r)
		if err != nil {
			return nil, err
		}
		return svc.Confirm(r.Context(), actor, id)
	})
}

func ReservationComplete(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		actor, err := principalFrom(r)
		if err != nil {
			return nil, err
		}
		return svc.Complete(r.Context(), actor, id)
	})
}

// ReservationCancel accepts an optional body; an empty body cancels without refund.
func ReservationCancel(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		actor, err := principalFrom(r)
		if err != nil {
			return nil, err
		}
		var body reservationCancelRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				return nil, err
			}
		}
		return svc.Cancel(r.Context(), actor, reservations.CancelInput{
			ReservationID: id,
			Reason:        strings.TrimSpace(body.Reason),
			Refund:        body.Refund,
		})
	})
}

func reservationAction(logg *logger.Logger, fn func(r *http.Request, id uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := fn(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
