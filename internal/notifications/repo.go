package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

// Repository persists the per-user inbox.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func inbox(userID uuid.UUID, unreadOnly bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Notification{}).Where("user_id = ?", userID)
		if unreadOnly {
			db = db.Where("read_at IS NULL")
		}
		return db
	}
}

func (r *Repository) Insert(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// Page returns up to limit+1 rows after cursor, newest first.
func (r *Repository) Page(ctx context.Context, userID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Scopes(inbox(userID, unreadOnly), pagination.Keyset(cursor, limit)).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Scopes(inbox(userID, true)).Count(&n).Error
	return n, err
}

// MarkRead stamps read_at unless already set and reports whether the
// notification belongs to userID. The COALESCE keeps the first read time
// while still matching read rows, so a repeat call is not a miss.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Scopes(inbox(userID, false)).
		Where("id = ?", id).
		UpdateColumn("read_at", gorm.Expr("COALESCE(read_at, ?)", at))
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Scopes(inbox(userID, true)).UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// PurgeRead deletes up to limit notifications read before cutoff, oldest
// first. Unread notifications are never purged.
func (r *Repository) PurgeRead(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	conn := r.db.WithContext(ctx)
	oldest := conn.Model(&models.Notification{}).
		Select("id").
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Order("read_at").
		Limit(limit)
	res := conn.Where("id IN (?)", oldest).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
