package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) ReleaseIfOwner(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string { return "sess:" + accessID }

var testJWT = config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60 * 24}

func newTestManager(t *testing.T) (*Manager, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	m, err := newManager(store, testJWT)
	require.NoError(t, err)
	return m, store
}

func TestGenerateStoresDigestNotToken(t *testing.T) {
	m, store := newTestManager(t)
	userID := uuid.New()

	token, err := m.Generate(context.Background(), "access-1", userID)
	require.NoError(t, err)

	raw := store.data["sess:access-1"]
	assert.Contains(t, raw, userID.String())
	assert.NotContains(t, raw, token)
	assert.Equal(t, testJWT.RefreshTokenTTL(), store.ttls["sess:access-1"])
}

func TestRotateIssuesNewSession(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()
	token, err := m.Generate(ctx, "access-1", userID)
	require.NoError(t, err)

	_, err = m.Rotate(ctx, "access-1", "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	next, err := m.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	assert.Equal(t, userID, next.UserID)
	assert.NotEqual(t, "access-1", next.AccessID)
	assert.NotEqual(t, token, next.RefreshToken)
	assert.NotContains(t, store.data, "sess:access-1")

	live, err := m.HasSession(ctx, next.AccessID)
	require.NoError(t, err)
	assert.True(t, live)

	_, err = m.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a rotated token must not be reusable")
}

func TestConcurrentRotateSucceedsOnce(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	token, err := m.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Rotate(ctx, "access-1", token); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRevokeEndsSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, err := m.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, "access-1"))
	live, err := m.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, live)

	assert.Error(t, m.Revoke(ctx, " "))
}

func TestRotateRejectsCorruptRecord(t *testing.T) {
	m, store := newTestManager(t)
	store.data["sess:legacy"] = "user|bare-token"

	_, err := m.Rotate(context.Background(), "legacy", "bare-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerRequiresRefreshOutlivingAccess(t *testing.T) {
	_, err := newManager(newMemoryStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "must exceed"))
}
