package refunds_test

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/rentalz-backend/internal/events"
	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/payments/providers"
	"github.com/angelmondragon/rentalz-backend/internal/refunds"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/internal/testdb"
	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

type fixture struct {
	conn        *gorm.DB
	client      *db.Client
	svc         refunds.Service
	provider    *providers.Test
	owner       *models.User
	admin       *models.User
	reservation *models.Reservation
	payment     *models.Payment
	emitted     []enums.NotificationType
}

func newFixture(t *testing.T, opts ...providers.TestOption) *fixture {
	t.Helper()
	conn, client := testdb.Open(t)
	provider := providers.NewTest(opts...)
	f := &fixture{conn: conn, client: client, provider: provider}

	recorder := events.NewDispatcher(nil, events.HookFunc{HookName: "record", Fn: func(_ context.Context, e events.Event) error {
		f.emitted = append(f.emitted, e.Type)
		return nil
	}})
	svc, err := refunds.NewService(refunds.ServiceParams{
		Repo:            refunds.NewRepository(conn),
		Payments:        payments.NewRepository(conn),
		Reservations:    reservations.NewRepository(conn),
		Registry:        payments.NewRegistry(provider),
		Tx:              client,
		Events:          recorder,
		ProviderTimeout: time.Second,
	})
	require.NoError(t, err)
	f.svc = svc

	f.owner = testdb.SeedUser(t, conn, enums.RoleCustomer)
	f.admin = testdb.SeedUser(t, conn, enums.RoleAdmin)
	vehicle := testdb.SeedVehicle(t, conn)
	f.reservation = testdb.SeedReservation(t, conn, f.owner.ID, vehicle.ID,
		testdb.Date(t, "2026-07-01T10:00"), testdb.Date(t, "2026-07-03T10:00"), enums.ReservationStatusConfirmed)

	txn := "test_captured"
	paidAt := time.Now().UTC()
	f.payment = &models.Payment{
		ReservationID: f.reservation.ID,
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		Status:        enums.PaymentStatusCompleted,
		Provider:      enums.PaymentProviderTest,
		TransactionID: &txn,
		PaidAt:        &paidAt,
	}
	require.NoError(t, conn.Create(f.payment).Error)
	return f
}

func (f *fixture) reloadPayment(t *testing.T) *models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, f.conn.First(&p, "id = ?", f.payment.ID).Error)
	return &p
}

func (f *fixture) reloadReservation(t *testing.T) *models.Reservation {
	t.Helper()
	var r models.Reservation
	require.NoError(t, f.conn.First(&r, "id = ?", f.reservation.ID).Error)
	return &r
}

func owner(u *models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

func TestRefundProcessedCancelsReservation(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.ProcessRefund(context.Background(), owner(f.admin), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.RequireFromString("100.00"),
		Reason:    "plans changed",
	})
	require.NoError(t, err)
	require.Equal(t, enums.RefundStatusProcessed, resp.Status)
	require.NotEmpty(t, resp.TransactionID)
	require.Equal(t, "USD", resp.Currency)

	payment := f.reloadPayment(t)
	require.Equal(t, enums.PaymentStatusRefunded, payment.Status)
	require.NotNil(t, payment.RefundedAt)
	require.Equal(t, enums.ReservationStatusCancelled, f.reloadReservation(t).Status)
	require.Equal(t, []enums.NotificationType{
		enums.NotificationTypeRefundProcessed,
		enums.NotificationTypeReservationCancelled,
	}, f.emitted)
}

func TestRefundAboveAmountLeavesPaymentUntouched(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessRefund(context.Background(), owner(f.admin), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.RequireFromString("150.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	require.Equal(t, enums.PaymentStatusCompleted, f.reloadPayment(t).Status)
	var count int64
	require.NoError(t, f.conn.Model(&models.Refund{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, f.provider.Refunds())
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("id = ?", f.payment.ID).
		Update("status", enums.PaymentStatusPending).Error)

	_, err := f.svc.ProcessRefund(context.Background(), owner(f.admin), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.RequireFromString("10.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRefund))
}

func TestRefundRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessRefund(context.Background(), owner(f.admin), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.Zero,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRefundAccessChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	amount := decimal.RequireFromString("10.00")

	_, err := f.svc.ProcessRefund(ctx, owner(f.admin), refunds.RefundInput{PaymentID: uuid.New(), Amount: amount})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentNotFound))

	stranger := testdb.SeedUser(t, f.conn, enums.RoleCustomer)
	_, err = f.svc.ProcessRefund(ctx, owner(stranger), refunds.RefundInput{PaymentID: f.payment.ID, Amount: amount})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	employee := testdb.SeedUser(t, f.conn, enums.RoleEmployee)
	_, err = f.svc.ProcessRefund(ctx, owner(employee), refunds.RefundInput{PaymentID: f.payment.ID, Amount: amount})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.ProcessRefund(ctx, owner(f.admin), refunds.RefundInput{PaymentID: f.payment.ID, Amount: amount})
	require.NoError(t, err)
}

func TestOwnerCannotRefundDirectly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Model(&models.Reservation{}).Where("id = ?", f.reservation.ID).
		Update("status", enums.ReservationStatusCompleted).Error)

	_, err := f.svc.ProcessRefund(context.Background(), owner(f.owner), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.RequireFromString("100.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	require.Equal(t, enums.PaymentStatusCompleted, f.reloadPayment(t).Status)
	require.Equal(t, enums.ReservationStatusCompleted, f.reloadReservation(t).Status)
	require.Zero(t, f.provider.Refunds())
	var count int64
	require.NoError(t, f.conn.Model(&models.Refund{}).Count(&count).Error)
	require.Zero(t, count)

	// the owner can still read the payment's refunds
	list, err := f.svc.ListForPayment(context.Background(), owner(f.owner), f.payment.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPartialRefundKeepsReservation(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.ProcessRefund(context.Background(), owner(f.admin), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.RequireFromString("10.00"),
		Reason:    "late pickup goodwill",
	})
	require.NoError(t, err)
	require.Equal(t, enums.RefundStatusProcessed, resp.Status)

	require.Equal(t, enums.ReservationStatusConfirmed, f.reloadReservation(t).Status)
	require.Equal(t, []enums.NotificationType{enums.NotificationTypeRefundProcessed}, f.emitted)
}

func TestOwnerRefundsThroughCancellation(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.RefundForCancellation(context.Background(), owner(f.owner), f.payment.ID, "trip called off"))
	require.Equal(t, enums.PaymentStatusRefunded, f.reloadPayment(t).Status)
	require.Equal(t, enums.ReservationStatusCancelled, f.reloadReservation(t).Status)
	require.Equal(t, int64(1), f.provider.Refunds())
}

func TestFindRequestedMissIsQuiet(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	quiet := f.conn.Session(&gorm.Session{Logger: gormlogger.New(log.New(&buf, "", 0), gormlogger.Config{LogLevel: gormlogger.Error})})
	repo := refunds.NewRepository(quiet)

	found, err := repo.FindRequested(context.Background(), f.payment.ID)
	require.NoError(t, err)
	require.Nil(t, found)
	require.Empty(t, buf.String())

	pending := &models.Refund{
		PaymentID:   f.payment.ID,
		Amount:      decimal.RequireFromString("5.00"),
		Currency:    "USD",
		Reason:      "fuel credit",
		Status:      enums.RefundStatusRequested,
		RequestedAt: time.Now().UTC(),
	}
	require.NoError(t, f.conn.Create(pending).Error)
	found, err = repo.FindRequested(context.Background(), f.payment.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, pending.ID, found.ID)
}

func TestProviderFailureMarksRefundFailed(t *testing.T) {
	f := newFixture(t, providers.WithFailingRefunds())

	_, err := f.svc.ProcessRefund(context.Background(), owner(f.admin), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.RequireFromString("100.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRefund))

	require.Equal(t, enums.PaymentStatusCompleted, f.reloadPayment(t).Status)
	require.Equal(t, enums.ReservationStatusConfirmed, f.reloadReservation(t).Status)

	list, err := f.svc.ListForPayment(context.Background(), owner(f.owner), f.payment.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, enums.RefundStatusFailed, list[0].Status)
	require.NotNil(t, list[0].FailureReason)
	require.Equal(t, []enums.NotificationType{enums.NotificationTypeRefundFailed}, f.emitted)
}

func TestCompletedReservationStaysCompletedAfterRefund(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Model(&models.Reservation{}).Where("id = ?", f.reservation.ID).
		Update("status", enums.ReservationStatusCompleted).Error)

	_, err := f.svc.ProcessRefund(context.Background(), owner(f.admin), refunds.RefundInput{
		PaymentID: f.payment.ID,
		Amount:    decimal.RequireFromString("40.00"),
		Reason:    "scratched bumper discount",
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusRefunded, f.reloadPayment(t).Status)
	require.Equal(t, enums.ReservationStatusCompleted, f.reloadReservation(t).Status)
}

func TestCancelWithRefundThroughReservations(t *testing.T) {
	f := newFixture(t)
	ledger, err := vehicles.NewLedger(vehicles.NewRepository(f.conn), f.client)
	require.NoError(t, err)
	resSvc, err := reservations.NewService(reservations.ServiceParams{
		Repo:     reservations.NewRepository(f.conn),
		Ledger:   ledger,
		Tx:       f.client,
		Refunder: f.svc,
	})
	require.NoError(t, err)

	out, err := resSvc.Cancel(context.Background(), owner(f.owner), reservations.CancelInput{
		ReservationID: f.reservation.ID,
		Reason:        "flight cancelled",
		Refund:        true,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ReservationStatusCancelled, out.Status)
	require.Equal(t, enums.PaymentStatusRefunded, f.reloadPayment(t).Status)
	require.Equal(t, int64(1), f.provider.Refunds())
}
