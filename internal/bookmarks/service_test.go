package bookmarks_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentalz-backend/internal/bookmarks"
	"github.com/angelmondragon/rentalz-backend/internal/testdb"
	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

func strPtr(s string) *string { return &s }

func TestBookmarkLifecycle(t *testing.T) {
	conn, _ := testdb.Open(t)
	svc, err := bookmarks.NewService(bookmarks.NewRepository(conn), vehicles.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	user := testdb.SeedUser(t, conn, enums.RoleCustomer)
	vehicle := testdb.SeedVehicle(t, conn)

	created, err := svc.Add(ctx, user.ID, vehicle.ID, strPtr("  road trip in june "))
	require.NoError(t, err)
	require.Equal(t, "road trip in june", *created.Note)

	_, err = svc.Add(ctx, user.ID, vehicle.ID, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	updated, err := svc.UpdateNote(ctx, user.ID, vehicle.ID, strPtr(" "))
	require.NoError(t, err)
	require.Nil(t, updated.Note)

	list, err := svc.List(ctx, user.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Nil(t, list.Items[0].Note)

	require.NoError(t, svc.Remove(ctx, user.ID, vehicle.ID))
	require.True(t, pkgerrors.HasCode(svc.Remove(ctx, user.ID, vehicle.ID), pkgerrors.CodeNotFound))
}

func TestBookmarkValidation(t *testing.T) {
	conn, _ := testdb.Open(t)
	svc, err := bookmarks.NewService(bookmarks.NewRepository(conn), vehicles.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	user := testdb.SeedUser(t, conn, enums.RoleCustomer)
	vehicle := testdb.SeedVehicle(t, conn)

	_, err = svc.Add(ctx, user.ID, uuid.New(), nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Add(ctx, user.ID, vehicle.ID, strPtr(strings.Repeat("x", 501)))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateNote(ctx, user.ID, vehicle.ID, strPtr("never added"))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
