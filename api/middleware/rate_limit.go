package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

// RateLimit caps requests per caller in a fixed window. Authenticated callers
// are keyed by user id, anonymous ones by client IP. A store failure lets the
// request through.
func RateLimit(store rateLimiterStore, window time.Duration, limit int, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || window <= 0 || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject := UserIDFromContext(ctx)
			if subject == "" {
				subject = "ip:" + clientIP(r)
			}

			allowed, count, err := allow(ctx, store, "rz:rl:api:"+subject, window, int64(limit))
			if err != nil {
				if logg != nil {
					logg.Warn(ctx, "rate_limit.store_unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"attempts": count, "limit": limit}), "api.rate_limit.blocked")
				}
				tooMany(w, r, logg, window)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
