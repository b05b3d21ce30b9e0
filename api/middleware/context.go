package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgAuth "github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

type callerKey struct{}

// caller is what Auth learned about the request from its access token.
type caller struct {
	userID    uuid.UUID
	role      enums.Role
	sessionID string
}

func withCaller(ctx context.Context, c caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, c)
}

func callerFrom(ctx context.Context) (caller, bool) {
	if ctx == nil {
		return caller{}, false
	}
	c, ok := ctx.Value(callerKey{}).(caller)
	return c, ok
}

// UserIDFromContext returns the caller's id, or "" on anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if c, ok := callerFrom(ctx); ok && c.userID != uuid.Nil {
		return c.userID.String()
	}
	return ""
}

// SessionIDFromContext returns the access token jti of the caller.
func SessionIDFromContext(ctx context.Context) string {
	c, _ := callerFrom(ctx)
	return c.sessionID
}

func PrincipalFromContext(ctx context.Context) (pkgAuth.Principal, bool) {
	c, ok := callerFrom(ctx)
	if !ok || c.userID == uuid.Nil || !c.role.IsValid() {
		return pkgAuth.Principal{}, false
	}
	return pkgAuth.Principal{UserID: c.userID, Role: c.role}, true
}

// WithPrincipal seeds an authenticated caller without a session, for
// internal callers and tests.
func WithPrincipal(ctx context.Context, p pkgAuth.Principal) context.Context {
	return withCaller(ctx, caller{userID: p.UserID, role: p.Role})
}
