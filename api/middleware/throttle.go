package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// maxThrottleBody bounds how much of a credential payload is buffered to find
// the account email.
const maxThrottleBody = 64 << 10

// ThrottlePolicy limits attempts against a credential endpoint, counted both
// per client address and per account email within one window.
type ThrottlePolicy struct {
	Scope      string
	Window     time.Duration
	PerIP      int
	PerAccount int
}

func (p ThrottlePolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerAccount > 0)
}

func (p ThrottlePolicy) key(kind, subject string) string {
	scope := strings.ToLower(strings.TrimSpace(p.Scope))
	if scope == "" {
		scope = "auth"
	}
	return "rz:rl:" + scope + ":" + kind + ":" + subject
}

// AuthThrottle guards login and registration. Unlike RateLimit it refuses the
// request when the counter store cannot be reached.
func AuthThrottle(policy ThrottlePolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.PerIP > 0 {
				ip := clientIP(r)
				if ip != "" && !checkThrottle(w, r, store, logg, policy, "ip", ip, policy.PerIP) {
					return
				}
			}

			if policy.PerAccount > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxThrottleBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := accountEmail(body); email != "" {
					if !checkThrottle(w, r, store, logg, policy, "email", digest(email), policy.PerAccount) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func checkThrottle(w http.ResponseWriter, r *http.Request, store rateLimiterStore, logg *logger.Logger, policy ThrottlePolicy, kind, subject string, limit int) bool {
	ctx := r.Context()
	allowed, attempts, err := allow(ctx, store, policy.key(kind, subject), policy.Window, int64(limit))
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if allowed {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":    policy.Scope,
			"kind":     kind,
			"subject":  subject,
			"attempts": attempts,
			"limit":    limit,
		}), "auth.throttled")
	}
	tooMany(w, r, logg, policy.Window)
	return false
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	n, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return n <= limit, n, nil
}

func tooMany(w http.ResponseWriter, r *http.Request, logg *logger.Logger, window time.Duration) {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, slow down"))
}

// clientIP prefers the first hop in X-Forwarded-For since the API runs behind
// a load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func accountEmail(payload []byte) string {
	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &probe) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(probe.Email))
}

func digest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:12])
}
