package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReservationStatus(t *testing.T) {
	status, err := ParseReservationStatus("CONFIRMED")
	require.NoError(t, err)
	require.Equal(t, ReservationStatusConfirmed, status)

	_, err = ParseReservationStatus("confirmed")
	require.Error(t, err)
}

func TestReservationStatusTerminal(t *testing.T) {
	require.False(t, ReservationStatusPending.IsTerminal())
	require.False(t, ReservationStatusConfirmed.IsTerminal())
	require.True(t, ReservationStatusCancelled.IsTerminal())
	require.True(t, ReservationStatusCompleted.IsTerminal())
}

func TestVehicleStatusesReturnsCopy(t *testing.T) {
	statuses := VehicleStatuses()
	require.Len(t, statuses, 6)
	statuses[0] = "MUTATED"
	require.Equal(t, VehicleStatusAvailable, VehicleStatuses()[0])
}

func TestRoleHelpers(t *testing.T) {
	require.True(t, RoleAdmin.IsStaff())
	require.True(t, RoleEmployee.IsStaff())
	require.False(t, RoleCustomer.IsStaff())
	require.False(t, Role("ROOT").IsValid())
}

func TestPaymentProviderParse(t *testing.T) {
	provider, err := ParsePaymentProvider("stripe")
	require.NoError(t, err)
	require.Equal(t, PaymentProviderStripe, provider)
	require.True(t, PaymentProviderOnsite.IsValid())
}

func TestParseErrorsNameTheEnum(t *testing.T) {
	_, err := ParseCurrency("JPY")
	require.EqualError(t, err, `invalid currency "JPY"`)

	_, err = ParseDayOfWeek("monday")
	require.EqualError(t, err, `invalid day of week "monday"`)
}

func TestRefundStatusTerminal(t *testing.T) {
	require.False(t, RefundStatusRequested.IsTerminal())
	require.True(t, RefundStatusProcessed.IsTerminal())
	require.True(t, RefundStatusFailed.IsTerminal())
	require.False(t, RefundStatus("UNKNOWN").IsTerminal())
}

func TestDaysOfWeekOrder(t *testing.T) {
	days := DaysOfWeek()
	require.Len(t, days, 7)
	require.Equal(t, DayOfWeekMonday, days[0])
	require.Equal(t, DayOfWeekSunday, days[6])
}
