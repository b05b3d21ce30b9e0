package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/api/validators"
	"github.com/angelmondragon/rentalz-backend/internal/openinghours"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

func OpeningHoursList(svc openinghours.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"days": days})
	}
}

// OpeningHoursUpsert handles PUT /opening-hours/{day}; the path day wins
// over any dayOfWeek in the body.
func OpeningHoursUpsert(svc openinghours.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := enums.DayOfWeek(strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "day"))))
		if !day.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid day of week"))
			return
		}
		var input openinghours.UpsertInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.DayOfWeek = day
		out, err := svc.Upsert(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
