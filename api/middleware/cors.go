package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
)

// CORS allows the configured browser origins. Idempotency-Key must be listed
// so SPA clients can retry reservations and refunds safely.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, ReplayedHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})
}
