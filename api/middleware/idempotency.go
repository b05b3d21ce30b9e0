package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/rentalz-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
	inFlightTTL          = 30 * time.Second
)

// Common replay windows. Cancellation and refunds get the long one since
// clients retry those after outages.
const (
	ReplayDay  = 24 * time.Hour
	ReplayWeek = 7 * 24 * time.Hour
)

type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotent replays the first successful response for a repeated
// Idempotency-Key on the wrapped route. Requests without the header pass
// straight through. A nil store disables the layer.
func Idempotent(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = ReplayDay
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scope := replayScope(r)
			key := store.IdempotencyKey(scope, clientKey)
			fp := fingerprint(r.Method, r.URL.Path, body)

			stored, err := store.Get(ctx, key)
			switch {
			case err != nil && !pkgredis.IsNil(err):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up idempotency key"))
				return
			case stored != "":
				var prior replay
				if err := json.Unmarshal([]byte(stored), &prior); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored response"))
					return
				}
				if prior.Fingerprint != fp {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
					return
				}
				prior.writeTo(w)
				return
			}

			lock := store.LockKey("http", scope+":"+clientKey)
			acquired, err := store.SetNX(ctx, lock, "1", inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock idempotency key"))
				return
			}
			if !acquired {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
				return
			}
			defer func() {
				if err := store.Del(context.WithoutCancel(ctx), lock); err != nil && logg != nil {
					logg.Warn(ctx, "idempotency.unlock_failed")
				}
			}()

			capture := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			if capture.code() < 200 || capture.code() >= 300 {
				return
			}

			payload, err := json.Marshal(replay{
				Status:      capture.code(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.buf.Bytes(),
				Fingerprint: fp,
			})
			if err == nil {
				err = store.Set(context.WithoutCancel(ctx), key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency.store_failed", err)
			}
		})
	}
}

func (p replay) writeTo(w http.ResponseWriter) {
	if p.ContentType != "" {
		w.Header().Set("Content-Type", p.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(p.Status)
	_, _ = w.Write(p.Body)
}

// replayScope keys records per caller and per concrete path, so the same
// client key on two reservations never collides.
func replayScope(r *http.Request) string {
	subject := UserIDFromContext(r.Context())
	if subject == "" {
		subject = "anon"
	}
	return subject + ":" + r.Method + ":" + r.URL.Path
}

func fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (c *capturingWriter) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *capturingWriter) code() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
