package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/api/middleware"
	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/api/validators"
	pkgAuth "github.com/angelmondragon/rentalz-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

func principalFrom(r *http.Request) (pkgAuth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return p, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// decodeBody decodes and validates the JSON body into a T, writing the error
// response itself when that fails.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, logg *logger.Logger) (T, bool) {
	var body T
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return body, false
	}
	return body, true
}
