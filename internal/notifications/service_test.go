package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentalz-backend/internal/notifications"
	"github.com/angelmondragon/rentalz-backend/internal/testdb"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

type inboxFixture struct {
	conn *gorm.DB
	repo *notifications.Repository
	svc  notifications.Service
	user *models.User
}

func newInbox(t *testing.T) *inboxFixture {
	t.Helper()
	conn, _ := testdb.Open(t)
	repo := notifications.NewRepository(conn)
	svc, err := notifications.NewService(repo)
	require.NoError(t, err)
	return &inboxFixture{conn: conn, repo: repo, svc: svc, user: testdb.SeedUser(t, conn, enums.RoleCustomer)}
}

// seed inserts n notifications a minute apart, oldest first.
func (f *inboxFixture) seed(t *testing.T, userID uuid.UUID, n int) []uuid.UUID {
	t.Helper()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, n)
	for i := range n {
		row := &models.Notification{
			UserID:    userID,
			Type:      enums.NotificationTypeSystem,
			Title:     "Update",
			Message:   "Office closes early today.",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.repo.Insert(context.Background(), row))
		ids[i] = row.ID
	}
	return ids
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newInbox(t)
	ids := f.seed(t, f.user.ID, 3)
	ctx := context.Background()

	first, err := f.svc.List(ctx, notifications.ListParams{UserID: f.user.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, ids[2], first.Items[0].ID)
	assert.Equal(t, ids[1], first.Items[1].ID)
	require.NotEmpty(t, first.Cursor)

	cursor, err := pagination.ParseCursor(first.Cursor)
	require.NoError(t, err)
	assert.Equal(t, ids[1], cursor.ID)

	second, err := f.svc.List(ctx, notifications.ListParams{UserID: f.user.ID, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, ids[0], second.Items[0].ID)
	assert.Empty(t, second.Cursor)
}

func TestListOnlyShowsOwnNotifications(t *testing.T) {
	f := newInbox(t)
	other := testdb.SeedUser(t, f.conn, enums.RoleCustomer)
	f.seed(t, f.user.ID, 1)
	f.seed(t, other.ID, 2)

	list, err := f.svc.List(context.Background(), notifications.ListParams{UserID: f.user.ID})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestListRejectsBadCursorAndMissingUser(t *testing.T) {
	f := newInbox(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, notifications.ListParams{UserID: f.user.ID, Cursor: "bad"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(ctx, notifications.ListParams{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestMarkReadKeepsFirstReadTime(t *testing.T) {
	f := newInbox(t)
	ids := f.seed(t, f.user.ID, 1)
	ctx := context.Background()

	require.NoError(t, f.svc.MarkRead(ctx, f.user.ID, ids[0]))
	var first models.Notification
	require.NoError(t, f.conn.First(&first, "id = ?", ids[0]).Error)
	require.NotNil(t, first.ReadAt)

	require.NoError(t, f.svc.MarkRead(ctx, f.user.ID, ids[0]))
	var again models.Notification
	require.NoError(t, f.conn.First(&again, "id = ?", ids[0]).Error)
	assert.True(t, first.ReadAt.Equal(*again.ReadAt))

	err := f.svc.MarkRead(ctx, f.user.ID, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	f := newInbox(t)
	ids := f.seed(t, f.user.ID, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.MarkRead(ctx, f.user.ID, ids[0]))

	unread, err := f.svc.UnreadCount(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	updated, err := f.svc.MarkAllRead(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	unread, err = f.svc.UnreadCount(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestPurgeReadSparesUnread(t *testing.T) {
	f := newInbox(t)
	ids := f.seed(t, f.user.ID, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.MarkRead(ctx, f.user.ID, ids[0]))
	require.NoError(t, f.svc.MarkRead(ctx, f.user.ID, ids[1]))

	deleted, err := f.repo.PurgeRead(ctx, time.Now().UTC().Add(time.Hour), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = f.repo.PurgeRead(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var left []models.Notification
	require.NoError(t, f.conn.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, ids[2], left[0].ID)
}

type failingStore struct{ notifications.Store }

func (failingStore) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestStoreFailuresAreDependencyErrors(t *testing.T) {
	svc, err := notifications.NewService(failingStore{})
	require.NoError(t, err)
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
