package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

// IdempotencyEntry is a cached payment response plus the fingerprint of the
// request that produced it.
type IdempotencyEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Response    PaymentResponse `json:"response"`
	StoredAt    time.Time       `json:"storedAt"`
}

// IdempotencyStore is the key-value backend of the cache. Acquire is an
// atomic set-if-absent lock so only one process computes a key at a time.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*IdempotencyEntry, error)
	Put(ctx context.Context, key string, entry IdempotencyEntry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// IdempotencyCache replays payment responses per idempotency key. Within a
// process concurrent callers for one key share a single computation; across
// processes the store lock turns the loser away with a conflict. Only
// successful responses are stored.
type IdempotencyCache struct {
	store   IdempotencyStore
	ttl     time.Duration
	lockTTL time.Duration
	group   singleflight.Group
	now     func() time.Time
}

func NewIdempotencyCache(store IdempotencyStore, ttl, lockTTL time.Duration) (*IdempotencyCache, error) {
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("idempotency ttl must be positive")
	}
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &IdempotencyCache{store: store, ttl: ttl, lockTTL: lockTTL, now: time.Now}, nil
}

type cacheResult struct {
	entry    IdempotencyEntry
	replayed bool
}

// Do returns the cached response for key, or runs compute and caches its
// result. replayed is true when the response came from the store.
func (c *IdempotencyCache) Do(ctx context.Context, key, fingerprint string, compute func(context.Context) (*PaymentResponse, error)) (*PaymentResponse, bool, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, fingerprint, compute)
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(cacheResult)
	if res.entry.Fingerprint != fingerprint {
		return nil, false, errKeyReused()
	}
	resp := res.entry.Response
	return &resp, res.replayed, nil
}

func (c *IdempotencyCache) load(ctx context.Context, key, fingerprint string, compute func(context.Context) (*PaymentResponse, error)) (cacheResult, error) {
	existing, err := c.store.Get(ctx, key)
	if err == nil && existing != nil {
		return cacheResult{entry: *existing, replayed: true}, nil
	}
	// An unreachable store degrades to the durable completed-payment check.
	if err != nil {
		resp, computeErr := compute(ctx)
		if computeErr != nil {
			return cacheResult{}, computeErr
		}
		return cacheResult{entry: IdempotencyEntry{Fingerprint: fingerprint, Response: *resp}}, nil
	}

	acquired, err := c.store.Acquire(ctx, key, c.lockTTL)
	if err != nil {
		return cacheResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire idempotency lock")
	}
	if !acquired {
		return cacheResult{}, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is in progress").
			WithDetails(map[string]any{"reason": "in_progress"})
	}
	defer func() { _ = c.store.Release(context.WithoutCancel(ctx), key) }()

	resp, err := compute(ctx)
	if err != nil {
		return cacheResult{}, err
	}
	entry := IdempotencyEntry{Fingerprint: fingerprint, Response: *resp, StoredAt: c.now().UTC()}
	// The payment is already persisted; a failed put is covered by the
	// completed-payment backstop on retry.
	_ = c.store.Put(context.WithoutCancel(ctx), key, entry, c.ttl)
	return cacheResult{entry: entry}, nil
}

// Invalidate drops a cached response.
func (c *IdempotencyCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// CacheKey scopes a caller-supplied key to the principal so keys never
// replay across users.
func CacheKey(userID uuid.UUID, key string) string {
	return userID.String() + ":" + key
}

// Fingerprint identifies "the same request" for a key.
func Fingerprint(input ProcessPaymentInput) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%s",
		input.ReservationID,
		input.Amount.StringFixed(2),
		input.Currency,
		input.PaymentMethodID,
		input.ProviderName,
	)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func errKeyReused() error {
	return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request").
		WithDetails(map[string]any{"reason": "fingerprint_mismatch"})
}
