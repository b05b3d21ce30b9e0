// Package session keeps refresh sessions in Redis, one per access token id.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
	pkgredis "github.com/angelmondragon/rentalz-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errNoAccessID          = errors.New("access id is required")
)

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// ReleaseIfOwner deletes key only while it still holds value.
	ReleaseIfOwner(ctx context.Context, key, value string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs to reject revoked
// access tokens before they expire.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

// record is the stored session. Only a digest of the refresh token is kept,
// so a Redis dump does not leak usable tokens.
type record struct {
	UserID uuid.UUID `json:"uid"`
	Digest string    `json:"rt"`
}

// Manager issues, rotates and revokes refresh sessions. Sessions are keyed
// by the access token jti so a refresh can find its session from an
// expired access token.
type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(client *pkgredis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(s store, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= access {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{store: s, ttl: ttl}, nil
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errNoAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.put(ctx, accessID, record{UserID: userID, Digest: digest(token)}); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate swaps the session under oldAccessID for a new one. The old session
// is claimed with a compare-and-delete, so of two concurrent refreshes with
// the same token only one succeeds.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, key)
	if pkgredis.IsNil(err) {
		return Rotation{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Rotation{}, err
	}

	var rec record
	if json.Unmarshal([]byte(raw), &rec) != nil || rec.UserID == uuid.Nil {
		return Rotation{}, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.Digest), []byte(digest(provided))) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	claimed, err := m.store.ReleaseIfOwner(ctx, key, raw)
	if err != nil {
		return Rotation{}, err
	}
	if !claimed {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := Rotation{AccessID: NewAccessID(), UserID: rec.UserID}
	if next.RefreshToken, err = newRefreshToken(); err != nil {
		return Rotation{}, err
	}
	if err := m.put(ctx, next.AccessID, record{UserID: rec.UserID, Digest: digest(next.RefreshToken)}); err != nil {
		return Rotation{}, err
	}
	return next, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errNoAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case pkgredis.IsNil(err):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) put(ctx context.Context, accessID string, rec record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl)
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
