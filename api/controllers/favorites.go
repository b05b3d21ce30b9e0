package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/api/validators"
	"github.com/angelmondragon/rentalz-backend/internal/favorites"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

type addFavoritePayload struct {
	VehicleID uuid.UUID `json:"vehicleId" validate:"required"`
}

// FavoriteList returns the caller's favorite vehicles, newest first.
func FavoriteList(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "favorites service unavailable"))
			return
		}
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := svc.List(ctx, actor.UserID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// FavoriteIDs returns only the vehicle ids, for heart icons on listing pages.
func FavoriteIDs(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := svc.ListIDs(ctx, actor.UserID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func FavoriteAdd(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload addFavoritePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		fav, err := svc.Add(ctx, actor.UserID, payload.VehicleID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, fav)
	}
}

func FavoriteRemove(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		vehicleID, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Remove(ctx, actor.UserID, vehicleID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}
