package reservations

import (
	"testing"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func fixedMachine() Machine {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Machine{now: func() time.Time { return at }}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.ReservationStatus
		ok       bool
	}{
		{enums.ReservationStatusPending, enums.ReservationStatusConfirmed, true},
		{enums.ReservationStatusPending, enums.ReservationStatusCancelled, true},
		{enums.ReservationStatusPending, enums.ReservationStatusCompleted, false},
		{enums.ReservationStatusConfirmed, enums.ReservationStatusCompleted, true},
		{enums.ReservationStatusConfirmed, enums.ReservationStatusCancelled, true},
		{enums.ReservationStatusConfirmed, enums.ReservationStatusConfirmed, false},
		{enums.ReservationStatusCancelled, enums.ReservationStatusConfirmed, false},
		{enums.ReservationStatusCompleted, enums.ReservationStatusCancelled, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestMachineConfirmRequiresCompletedPayment(t *testing.T) {
	m := fixedMachine()
	r := &models.Reservation{ID: uuid.New(), Status: enums.ReservationStatusPending}

	err := m.Confirm(r, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, enums.ReservationStatusPending, r.Status)

	pending := &models.Payment{ReservationID: r.ID, Status: enums.PaymentStatusPending, Amount: decimal.NewFromInt(10)}
	err = m.Confirm(r, pending)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	other := &models.Payment{ReservationID: uuid.New(), Status: enums.PaymentStatusCompleted}
	require.Error(t, m.Confirm(r, other))

	paid := &models.Payment{ReservationID: r.ID, Status: enums.PaymentStatusCompleted}
	require.NoError(t, m.Confirm(r, paid))
	require.Equal(t, enums.ReservationStatusConfirmed, r.Status)
	require.NotNil(t, r.ConfirmedAt)

	// double confirm
	err = m.Confirm(r, paid)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestMachineCancelGuardsCompletedPayment(t *testing.T) {
	m := fixedMachine()
	r := &models.Reservation{ID: uuid.New(), Status: enums.ReservationStatusConfirmed}

	paid := &models.Payment{ReservationID: r.ID, Status: enums.PaymentStatusCompleted}
	err := m.Cancel(r, paid, "changed plans")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, enums.ReservationStatusConfirmed, r.Status)
	require.Nil(t, r.CancelledAt)

	paid.Status = enums.PaymentStatusRefunded
	require.NoError(t, m.Cancel(r, paid, "  changed plans "))
	require.Equal(t, enums.ReservationStatusCancelled, r.Status)
	require.Equal(t, "changed plans", *r.CancelReason)

	err = m.Cancel(r, nil, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestMachineComplete(t *testing.T) {
	m := fixedMachine()
	pending := &models.Reservation{Status: enums.ReservationStatusPending}
	require.Error(t, m.Complete(pending))

	confirmed := &models.Reservation{Status: enums.ReservationStatusConfirmed}
	require.NoError(t, m.Complete(confirmed))
	require.Equal(t, enums.ReservationStatusCompleted, confirmed.Status)
	require.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), *confirmed.CompletedAt)
}

func TestQuoteRoundsUpToWholeDays(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	price := decimal.RequireFromString("50.00")

	require.Equal(t, int64(1), BillableDays(start, start.Add(time.Hour)))
	require.Equal(t, int64(1), BillableDays(start, start.Add(24*time.Hour)))
	require.Equal(t, int64(2), BillableDays(start, start.Add(25*time.Hour)))
	require.True(t, Quote(price, start, start.Add(48*time.Hour)).Equal(decimal.RequireFromString("100.00")))
}
