package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultPurgeBatch            = 500
)

type readNotificationPurger interface {
	PurgeRead(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NotificationCleanupJobParams configure the retention sweep. Only read
// notifications are eligible; unread ones stay until the user sees them.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications readNotificationPurger
	Retention     time.Duration
	BatchSize     int
}

func NewNotificationCleanupJob(p NotificationCleanupJobParams) (Job, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.Notifications == nil:
		return nil, errors.New("notifications repository required")
	}
	if p.Retention <= 0 {
		p.Retention = defaultNotificationRetention
	}
	if p.BatchSize <= 0 {
		p.BatchSize = defaultPurgeBatch
	}
	return &notificationCleanupJob{params: p, now: time.Now}, nil
}

type notificationCleanupJob struct {
	params NotificationCleanupJobParams
	now    func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes in batches so one sweep never holds a long lock on the table.
// A cancelled context stops between batches.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.params.Retention)
	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.params.Notifications.PurgeRead(ctx, cutoff, j.params.BatchSize)
		if err != nil {
			return fmt.Errorf("purge read notifications: %w", err)
		}
		total += n
		batches++
		if n < int64(j.params.BatchSize) {
			break
		}
	}

	logg := j.params.Logger
	logg.Info(logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"deleted": total,
		"batches": batches,
	}), "notification cleanup complete")
	return nil
}
