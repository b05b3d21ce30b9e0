package vehicles

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/rentalz-backend/internal/testdb"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestWindowOverlapHalfOpen(t *testing.T) {
	at := func(v string) time.Time { return testdb.Date(t, v) }
	base := Window{Start: at("2025-06-01T10:00"), End: at("2025-06-01T11:00")}

	cases := []struct {
		name     string
		other    Window
		overlaps bool
	}{
		{"touching after", Window{Start: at("2025-06-01T11:00"), End: at("2025-06-01T12:00")}, false},
		{"touching before", Window{Start: at("2025-06-01T09:00"), End: at("2025-06-01T10:00")}, false},
		{"partial overlap", Window{Start: at("2025-06-01T10:30"), End: at("2025-06-01T11:30")}, true},
		{"contained", Window{Start: at("2025-06-01T10:15"), End: at("2025-06-01T10:45")}, true},
		{"containing", Window{Start: at("2025-06-01T09:00"), End: at("2025-06-01T12:00")}, true},
		{"identical", base, true},
		{"disjoint", Window{Start: at("2025-06-02T10:00"), End: at("2025-06-02T11:00")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.overlaps, base.Overlaps(tc.other))
			require.Equal(t, tc.overlaps, tc.other.Overlaps(base))
		})
	}
}

func TestNewWindowRejectsEmptyAndInverted(t *testing.T) {
	start := testdb.Date(t, "2025-06-01T10:00")

	_, err := NewWindow(start, start)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = NewWindow(start, start.Add(-time.Hour))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = NewWindow(time.Time{}, start)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	w, err := NewWindow(start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, time.Hour, w.Duration())
}

func TestLedgerDetectsOverlapsAndIgnoresCancelled(t *testing.T) {
	conn, client := testdb.Open(t)
	ledger, err := NewLedger(NewRepository(conn), client)
	require.NoError(t, err)

	ctx := context.Background()
	user := testdb.SeedUser(t, conn, enums.RoleCustomer)
	vehicle := testdb.SeedVehicle(t, conn)

	testdb.SeedReservation(t, conn, user.ID, vehicle.ID,
		testdb.Date(t, "2025-06-01T10:00"), testdb.Date(t, "2025-06-02T10:00"), enums.ReservationStatusPending)
	testdb.SeedReservation(t, conn, user.ID, vehicle.ID,
		testdb.Date(t, "2025-06-05T10:00"), testdb.Date(t, "2025-06-06T10:00"), enums.ReservationStatusCancelled)

	available, err := ledger.CheckAvailability(ctx, vehicle.ID,
		testdb.Date(t, "2025-06-01T18:00"), testdb.Date(t, "2025-06-03T10:00"))
	require.NoError(t, err)
	require.False(t, available)

	err = ledger.AssertAvailable(ctx, vehicle.ID,
		testdb.Date(t, "2025-06-01T18:00"), testdb.Date(t, "2025-06-03T10:00"))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	available, err = ledger.CheckAvailability(ctx, vehicle.ID,
		testdb.Date(t, "2025-06-02T10:00"), testdb.Date(t, "2025-06-03T10:00"))
	require.NoError(t, err)
	require.True(t, available, "touching endpoint must not conflict")

	available, err = ledger.CheckAvailability(ctx, vehicle.ID,
		testdb.Date(t, "2025-06-05T12:00"), testdb.Date(t, "2025-06-05T18:00"))
	require.NoError(t, err)
	require.True(t, available, "cancelled reservations free the window")
}

func TestLedgerVehicleStatusAndInput(t *testing.T) {
	conn, client := testdb.Open(t)
	ledger, err := NewLedger(NewRepository(conn), client)
	require.NoError(t, err)

	ctx := context.Background()
	vehicle := testdb.SeedVehicle(t, conn)
	require.NoError(t, conn.Model(vehicle).Update("status", enums.VehicleStatusInMaintenance).Error)

	start := testdb.Date(t, "2030-01-01T10:00")
	available, err := ledger.CheckAvailability(ctx, vehicle.ID, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.False(t, available, "vehicles in maintenance are never bookable")

	_, err = ledger.CheckAvailability(ctx, vehicle.ID, start, start)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "zero-length window rejected before lookup")

	_, err = ledger.CheckAvailability(ctx, uuid.New(), start, start.Add(time.Hour))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
