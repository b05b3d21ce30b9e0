package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/rentalz-backend/api/middleware"
	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

var errAuthUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")

type sessionService interface {
	Refresh(ctx context.Context, accessID, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, accessID string) error
}

// AuthLogin exchanges credentials for an access and refresh token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		body, ok := decodeBody[auth.LoginRequest](w, r, logg)
		if !ok {
			return
		}
		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates a customer account and signs it in, so the client
// gets the same payload as from a login.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		body, ok := decodeBody[auth.RegisterRequest](w, r, logg)
		if !ok {
			return
		}
		if _, err := reg.Register(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminRegisterStaff creates an EMPLOYEE or ADMIN account without signing
// it in.
func AdminRegisterStaff(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		body, ok := decodeBody[auth.StaffRegisterRequest](w, r, logg)
		if !ok {
			return
		}
		user, err := reg.RegisterStaff(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// AuthLogout revokes the session behind the presented access token.
func AuthLogout(svc sessionService, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		accessID, err := presentedSessionID(r, cfg)
		if err == nil {
			err = svc.Logout(r.Context(), accessID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the refresh token and mints a new access token under
// the same session id.
func AuthRefresh(svc sessionService, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		body, ok := decodeBody[auth.RefreshRequest](w, r, logg)
		if !ok {
			return
		}
		accessID, err := presentedSessionID(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pair, err := svc.Refresh(r.Context(), accessID, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pair)
	}
}

// presentedSessionID reads the jti of the bearer token. Expiry is ignored so
// a client can still refresh or log out with a stale access token.
func presentedSessionID(r *http.Request, cfg config.JWTConfig) (string, error) {
	raw := middleware.BearerToken(r)
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims.ID, nil
}
