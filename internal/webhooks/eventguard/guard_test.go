package eventguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	data   map[string]string
	setErr error
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memStore) IdempotencyKey(scope, id string) string { return "rz:idempotency:" + scope + ":" + id }

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestGuardMarksOnce(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	g, err := New(store, time.Hour, "stripe-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := g.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	require.False(t, seen)
	require.Contains(t, store.data, "rz:idempotency:stripe-webhook:evt_1")

	seen, err = g.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, g.Delete(ctx, "evt_1"))
	seen, err = g.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestGuardValidation(t *testing.T) {
	_, err := New(nil, time.Hour, "x")
	require.Error(t, err)
	_, err = New(&memStore{}, -time.Second, "x")
	require.Error(t, err)
	_, err = New(&memStore{}, time.Hour, "")
	require.Error(t, err)

	g, err := New(&memStore{data: map[string]string{}, setErr: errors.New("down")}, time.Hour, "square-webhook")
	require.NoError(t, err)
	_, err = g.CheckAndMark(context.Background(), "")
	require.Error(t, err)
	_, err = g.CheckAndMark(context.Background(), "evt")
	require.ErrorContains(t, err, "down")
}
