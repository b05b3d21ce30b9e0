package vehicles

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/rentalz-backend/internal/testdb"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, client := testdb.Open(t)
	repo := NewRepository(conn)
	ledger, err := NewLedger(repo, client)
	require.NoError(t, err)
	svc, err := NewService(repo, ledger)
	require.NoError(t, err)
	return svc
}

func validInput(plate string) CreateVehicleInput {
	return CreateVehicleInput{
		Brand:        "Honda",
		Model:        "Civic",
		Year:         2021,
		LicensePlate: plate,
		FuelType:     enums.FuelTypeHybrid,
		Mileage:      1200,
		PricePerDay:  decimal.RequireFromString("64.50"),
	}
}

func TestServiceCreateNormalizesAndDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput(" abc-123 "))
	require.NoError(t, err)
	require.Equal(t, "ABC-123", created.LicensePlate)
	require.Equal(t, enums.VehicleStatusAvailable, created.Status)

	fetched, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, fetched.PricePerDay.Equal(decimal.RequireFromString("64.50")))
}

func TestServiceCreateDuplicatePlateConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("DUP-1"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput("dup-1"))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestServiceCreateValidation(t *testing.T) {
	svc := newTestService(t)
	input := validInput("VAL-1")
	input.PricePerDay = decimal.RequireFromString("10.999")
	input.FuelType = "STEAM"

	_, err := svc.Create(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "pricePerDay")
	require.Contains(t, details, "fuelType")
}

func TestServiceUpdateAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput("UPD-1"))
	require.NoError(t, err)

	status := enums.VehicleStatusDamaged
	mileage := 1500
	updated, err := svc.Update(ctx, UpdateVehicleInput{ID: created.ID, Status: &status, Mileage: &mileage})
	require.NoError(t, err)
	require.Equal(t, enums.VehicleStatusDamaged, updated.Status)
	require.Equal(t, 1500, updated.Mileage)

	lower := 10
	_, err = svc.Update(ctx, UpdateVehicleInput{ID: created.ID, Mileage: &lower})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	err = svc.Delete(ctx, uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestServiceDeleteBlockedByOpenReservation(t *testing.T) {
	conn, client := testdb.Open(t)
	repo := NewRepository(conn)
	ledger, err := NewLedger(repo, client)
	require.NoError(t, err)
	svc, err := NewService(repo, ledger)
	require.NoError(t, err)

	user := testdb.SeedUser(t, conn, enums.RoleCustomer)
	vehicle := testdb.SeedVehicle(t, conn)
	start := time.Now().Add(24 * time.Hour)
	testdb.SeedReservation(t, conn, user.ID, vehicle.ID, start, start.Add(24*time.Hour), enums.ReservationStatusConfirmed)

	err = svc.Delete(context.Background(), vehicle.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestServiceListFiltersAndPages(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i, plate := range []string{"L-1", "L-2", "L-3"} {
		input := validInput(plate)
		if i == 2 {
			input.Status = enums.VehicleStatusOutOfService
		}
		_, err := svc.Create(ctx, input)
		require.NoError(t, err)
	}

	available := enums.VehicleStatusAvailable
	list, err := svc.List(ctx, pagination.Params{Limit: 10}, ListFilters{Status: &available})
	require.NoError(t, err)
	require.Len(t, list.Vehicles, 2)
	require.Empty(t, list.NextCursor)

	page, err := svc.List(ctx, pagination.Params{Limit: 1}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Vehicles, 1)
	require.NotEmpty(t, page.NextCursor)

	bogus := enums.VehicleStatus("FLYING")
	_, err = svc.List(ctx, pagination.Params{}, ListFilters{Status: &bogus})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestServiceAvailability(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput("AV-1"))
	require.NoError(t, err)

	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	result, err := svc.Availability(ctx, created.ID, start, start.Add(48*time.Hour))
	require.NoError(t, err)
	require.True(t, result.Available)
}
