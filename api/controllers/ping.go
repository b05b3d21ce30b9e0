package controllers

import (
	"net/http"

	"github.com/angelmondragon/rentalz-backend/api/middleware"
	"github.com/angelmondragon/rentalz-backend/api/responses"
)

type pong struct {
	Scope  string `json:"scope"`
	Status string `json:"status"`
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Ping answers with the scope it is mounted under and, behind Auth, who the
// caller is. Clients use the private and admin variants to probe a token.
func Ping(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := pong{Scope: scope, Status: "ok"}
		if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
			out.UserID, out.Role = p.UserID.String(), string(p.Role)
		}
		responses.WriteSuccess(w, out)
	}
}
