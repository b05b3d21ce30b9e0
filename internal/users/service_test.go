package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentalz-backend/internal/testdb"
	"github.com/angelmondragon/rentalz-backend/internal/users"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

func ptr(s string) *string { return &s }

func TestRepositoryFoldsEmail(t *testing.T) {
	conn, _ := testdb.Open(t)
	repo := users.NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, users.NewUser{
		Email:        "  Ann.Driver@Example.COM ",
		PasswordHash: "hash",
		FirstName:    "Ann",
		LastName:     "Driver",
	})
	require.NoError(t, err)
	require.Equal(t, "ann.driver@example.com", created.Email)
	require.Equal(t, enums.RoleCustomer, created.Role)
	require.True(t, created.IsActive)

	found, err := repo.ByEmail(ctx, "ANN.DRIVER@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	taken, err := repo.EmailTaken(ctx, "ann.driver@EXAMPLE.com")
	require.NoError(t, err)
	require.True(t, taken)
	taken, err = repo.EmailTaken(ctx, "someone@example.com")
	require.NoError(t, err)
	require.False(t, taken)
}

func TestTouchLastLogin(t *testing.T) {
	conn, _ := testdb.Open(t)
	repo := users.NewRepository(conn)
	user := testdb.SeedUser(t, conn, enums.RoleCustomer)
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.TouchLastLogin(context.Background(), user.ID, at))
	got, err := repo.ByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, got.LastLoginAt.Equal(at))
}

func TestUpdateProfile(t *testing.T) {
	conn, _ := testdb.Open(t)
	repo := users.NewRepository(conn)
	svc, err := users.NewService(repo)
	require.NoError(t, err)
	user := testdb.SeedUser(t, conn, enums.RoleCustomer)
	ctx := context.Background()

	profile, err := svc.UpdateProfile(ctx, user.ID, users.UpdateProfileInput{
		FirstName: ptr("  Grace "),
		Phone:     ptr("+1 555 0100"),
	})
	require.NoError(t, err)
	require.Equal(t, "Grace", profile.FirstName)
	require.Equal(t, "User", profile.LastName)
	require.NotNil(t, profile.Phone)
	require.Equal(t, "+1 555 0100", *profile.Phone)

	profile, err = svc.UpdateProfile(ctx, user.ID, users.UpdateProfileInput{Phone: ptr("")})
	require.NoError(t, err)
	require.Nil(t, profile.Phone)

	_, err = svc.UpdateProfile(ctx, user.ID, users.UpdateProfileInput{LastName: ptr("   ")})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateProfile(ctx, uuid.New(), users.UpdateProfileInput{FirstName: ptr("Nobody")})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestMeUnknownUser(t *testing.T) {
	conn, _ := testdb.Open(t)
	svc, err := users.NewService(users.NewRepository(conn))
	require.NoError(t, err)
	_, err = svc.Me(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
