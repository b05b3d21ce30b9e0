package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/redis"
)

const idempotencyScope = "payments"

// RedisIdempotencyStore shares cached responses and in-progress locks across
// API instances. Keys follow `rz:idempotency:payments:<user>:<key>`.
type RedisIdempotencyStore struct {
	store redis.IdempotencyStore
}

func NewRedisIdempotencyStore(store redis.IdempotencyStore) (*RedisIdempotencyStore, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &RedisIdempotencyStore{store: store}, nil
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*IdempotencyEntry, error) {
	raw, err := s.store.Get(ctx, s.store.IdempotencyKey(idempotencyScope, key))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var entry IdempotencyEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisIdempotencyStore) Put(ctx context.Context, key string, entry IdempotencyEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	return s.store.Set(ctx, s.store.IdempotencyKey(idempotencyScope, key), payload, ttl)
}

func (s *RedisIdempotencyStore) Delete(ctx context.Context, key string) error {
	return s.store.Del(ctx,
		s.store.IdempotencyKey(idempotencyScope, key),
		s.store.LockKey(idempotencyScope, key),
	)
}

func (s *RedisIdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.store.SetNX(ctx, s.store.LockKey(idempotencyScope, key), "PROCESSING", ttl)
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.store.Del(ctx, s.store.LockKey(idempotencyScope, key))
}
