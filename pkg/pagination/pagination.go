// Package pagination implements keyset paging over (created_at, id), newest
// first. Cursors are opaque to clients.
package pagination

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

func errBadCursor() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid pagination cursor")
}

// Params is what list endpoints accept.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor marks the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting when unset.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer asks for one extra row so Trim can tell whether a next
// page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor packs the cursor as url-safe base64 of "<unix nanos>.<uuid>".
func EncodeCursor(c Cursor) string {
	raw := make([]byte, 0, 64)
	raw = strconv.AppendInt(raw, c.CreatedAt.UnixNano(), 10)
	raw = append(raw, '.')
	raw = append(raw, c.ID.String()...)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor returns nil for a blank value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, errBadCursor()
	}
	nanos, idPart, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, errBadCursor()
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, errBadCursor()
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, errBadCursor()
	}
	return &Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}

// Keyset is a gorm scope that resumes after cursor (when set), orders newest
// first and fetches limit plus the lookahead row.
func Keyset(cursor *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(limit))
	}
}

// Trim drops the lookahead row and returns the cursor for the next page, or
// "" on the last page.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	page := rows[:limit]
	return page, EncodeCursor(cursorOf(page[limit-1]))
}
