// Package eventguard deduplicates provider webhook deliveries by event id.
package eventguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/redis"
)

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

var _ store = (redis.IdempotencyStore)(nil)

// Guard marks each event id once per TTL so redelivered webhooks are acknowledged
// without being applied twice.
type Guard struct {
	store store
	ttl   time.Duration
	scope string
}

func New(s store, ttl time.Duration, scope string) (*Guard, error) {
	if s == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &Guard{store: s, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports whether eventID was already seen, marking it otherwise.
func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete releases the mark so a failed delivery can be retried by the provider.
func (g *Guard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
