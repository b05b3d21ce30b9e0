package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestContextFieldsFollowTheRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithReservationID(ctx, "res-1")
	ctx = log.WithFields(ctx, map[string]any{"vehicle_id": "veh-9"})
	log.Error(ctx, "reservation.create_failed", errors.New("overlap"))

	entry := lastEntry(t, buf)
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "res-1", entry["reservation_id"])
	assert.Equal(t, "veh-9", entry["vehicle_id"])
	assert.Equal(t, "overlap", entry["error"])
	assert.NotEmpty(t, entry["stack"])
}

func TestParentContextIsNotMutated(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})
	parent := log.WithUserID(context.Background(), "u-1")
	_ = log.WithPaymentID(parent, "p-1")

	log.Info(parent, "only user")
	entry := lastEntry(t, buf)
	assert.Equal(t, "u-1", entry["user_id"])
	assert.NotContains(t, entry, "payment_id")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Output: buf, WarnStack: true}).Warn(context.Background(), "slow provider")
	assert.Contains(t, lastEntry(t, buf), "stack")

	buf.Reset()
	New(Options{Output: buf}).Warn(context.Background(), "slow provider")
	assert.NotContains(t, lastEntry(t, buf), "stack")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Output: buf, Level: zerolog.InfoLevel}).Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}

func TestFromConfig(t *testing.T) {
	log := FromConfig("cron-worker", config.AppConfig{LogLevel: "error", LogWarnStack: true, LogFormat: "json"})
	assert.Equal(t, zerolog.ErrorLevel, log.root.GetLevel())
	assert.True(t, log.warnStack)
}
