package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	pkgAuth "github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/auth/session"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

// Auth admits requests carrying a valid access token whose session is still
// live. Browsers cannot set headers on a WebSocket handshake, so upgrade
// requests may pass the token as ?token= instead.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			p := claims.Principal()
			ctx := withCaller(r.Context(), caller{userID: p.UserID, role: p.Role, sessionID: claims.ID})
			if logg != nil {
				ctx = logg.WithUserID(ctx, p.UserID.String())
				ctx = logg.WithActorRole(ctx, string(p.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	raw := BearerToken(r)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return claims, nil
	}
	live, err := sessions.HasSession(r.Context(), claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked or expired")
	}
	return claims, nil
}

// BearerToken returns the token of an "Authorization: Bearer" header, or ""
// when none is present.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	if isWebSocketUpgrade(r) {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}

func isWebSocketUpgrade(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
