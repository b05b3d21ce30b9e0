package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/api/validators"
	"github.com/angelmondragon/rentalz-backend/internal/bookmarks"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

type addBookmarkPayload struct {
	VehicleID uuid.UUID `json:"vehicleId" validate:"required"`
	Note      *string   `json:"note,omitempty"`
}

type bookmarkNotePayload struct {
	Note *string `json:"note"`
}

func BookmarkList(svc bookmarks.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.List(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func BookmarkAdd(svc bookmarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addBookmarkPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bm, err := svc.Add(r.Context(), actor.UserID, payload.VehicleID, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bm)
	}
}

// BookmarkUpdateNote replaces the note; a null or blank note clears it.
func BookmarkUpdateNote(svc bookmarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicleID, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bookmarkNotePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bm, err := svc.UpdateNote(r.Context(), actor.UserID, vehicleID, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bm)
	}
}

func BookmarkRemove(svc bookmarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicleID, err := uuidParam(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), actor.UserID, vehicleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
