package payments_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/payments/providers"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/internal/testdb"
	"github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/metrics"
)

type fixture struct {
	conn        *gorm.DB
	svc         payments.Service
	provider    *providers.Test
	registry    *prometheus.Registry
	owner       *models.User
	admin       *models.User
	reservation *models.Reservation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, client := testdb.Open(t)
	store := payments.NewMemoryIdempotencyStore(0)
	t.Cleanup(store.Close)
	cache, err := payments.NewIdempotencyCache(store, 24*time.Hour, time.Minute)
	require.NoError(t, err)

	provider := providers.NewTest()
	reg := prometheus.NewRegistry()
	svc, err := payments.NewService(payments.ServiceParams{
		Repo:         payments.NewRepository(conn),
		Reservations: reservations.NewRepository(conn),
		Registry:     payments.NewRegistry(provider, providers.NewOnsite()),
		Tx:           client,
		Cache:        cache,
		Metrics:      metrics.NewPaymentMetrics(reg),
		Config: config.PaymentsConfig{
			MaxAttempts:     3,
			ProviderTimeout: 5 * time.Second,
			DefaultCurrency: "USD",
			SuccessURL:      "https://rentalz.test/paid",
			CancelURL:       "https://rentalz.test/cancelled",
		},
	})
	require.NoError(t, err)

	owner := testdb.SeedUser(t, conn, enums.RoleCustomer)
	admin := testdb.SeedUser(t, conn, enums.RoleAdmin)
	vehicle := testdb.SeedVehicle(t, conn)
	// three days at 50.00
	reservation := testdb.SeedReservation(t, conn, owner.ID, vehicle.ID,
		testdb.Date(t, "2026-06-01T10:00"), testdb.Date(t, "2026-06-04T10:00"), enums.ReservationStatusPending)

	return &fixture{
		conn:        conn,
		svc:         svc,
		provider:    provider,
		registry:    reg,
		owner:       owner,
		admin:       admin,
		reservation: reservation,
	}
}

func (f *fixture) input(method string) payments.ProcessPaymentInput {
	return payments.ProcessPaymentInput{
		ReservationID:   f.reservation.ID,
		Amount:          decimal.RequireFromString("150.00"),
		Currency:        "USD",
		PaymentMethodID: method,
		ProviderName:    "test",
	}
}

func (f *fixture) reload(t *testing.T) *models.Reservation {
	t.Helper()
	var r models.Reservation
	require.NoError(t, f.conn.First(&r, "id = ?", f.reservation.ID).Error)
	return &r
}

func (f *fixture) paymentRows(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("reservation_id = ?", f.reservation.ID).Count(&count).Error)
	return count
}

func as(u *models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

func TestProcessPaymentReplaysSameIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input("pm_card_visa"), "k1")
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, first.Status)
	require.NotEmpty(t, first.TransactionID)

	second, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input("pm_card_visa"), "k1")
	require.NoError(t, err)
	require.Equal(t, first.PaymentID, second.PaymentID)
	require.Equal(t, first.TransactionID, second.TransactionID)

	require.Equal(t, int64(1), f.provider.Charges())
	require.Equal(t, int64(1), f.paymentRows(t))
	require.Equal(t, enums.ReservationStatusConfirmed, f.reload(t).Status)
	require.Equal(t, 1.0, counterValue(t, f.registry, "payments_processed_total", "test", metrics.OutcomeReplayed))
}

func TestProcessPaymentWithoutKeyReturnsCompletedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input("pm_card_visa"), "")
	require.NoError(t, err)
	second, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input("pm_card_visa"), "")
	require.NoError(t, err)

	require.Equal(t, first.PaymentID, second.PaymentID)
	require.Equal(t, int64(1), f.provider.Charges())
}

func TestProcessPaymentUnknownProviderHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	input := f.input("pm_card_visa")
	input.ProviderName = "bitcoin"

	_, err := f.svc.ProcessPayment(context.Background(), as(f.owner), input, "k1")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePayment))
	require.Equal(t, int64(0), f.paymentRows(t))
	require.Equal(t, int64(0), f.provider.Charges())
}

func TestProcessPaymentForOtherUserIsForbidden(t *testing.T) {
	f := newFixture(t)
	stranger := testdb.SeedUser(t, f.conn, enums.RoleCustomer)

	_, err := f.svc.ProcessPayment(context.Background(), as(stranger), f.input("pm_card_visa"), "k1")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	require.Equal(t, int64(0), f.paymentRows(t))
	require.Equal(t, int64(0), f.provider.Charges())
}

func TestProcessPaymentRejectsWrongAmount(t *testing.T) {
	f := newFixture(t)
	input := f.input("pm_card_visa")
	input.Amount = decimal.RequireFromString("100.00")

	_, err := f.svc.ProcessPayment(context.Background(), as(f.owner), input, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	require.Equal(t, int64(0), f.provider.Charges())
}

func TestProcessPaymentValidatesInput(t *testing.T) {
	f := newFixture(t)
	input := f.input("")
	input.Currency = "XYZ"

	_, err := f.svc.ProcessPayment(context.Background(), as(f.owner), input, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestDeclinesExhaustRetryBudgetAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input(providers.TestMethodDeclined), "")
		require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePayment), "attempt %d", attempt)
		require.Equal(t, attempt, f.reload(t).PaymentAttempts)
	}

	reservation := f.reload(t)
	require.Equal(t, enums.ReservationStatusCancelled, reservation.Status)
	require.NotNil(t, reservation.CancelReason)

	_, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input("pm_card_visa"), "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, int64(3), f.provider.Charges())
	require.Equal(t, int64(1), f.paymentRows(t))
}

func TestProviderErrorIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input(providers.TestMethodProviderError), "k1")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePayment))
	require.True(t, pkgerrors.IsRetryable(err))

	reservation := f.reload(t)
	require.Equal(t, enums.ReservationStatusPending, reservation.Status)
	require.Equal(t, 0, reservation.PaymentAttempts)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "reservation_id = ?", f.reservation.ID).Error)
	require.Equal(t, enums.PaymentStatusFailed, payment.Status)

	resp, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input("pm_card_visa"), "k2")
	require.NoError(t, err)
	require.Equal(t, payment.ID, resp.PaymentID)
	require.Equal(t, enums.PaymentStatusCompleted, resp.Status)
}

func TestCompleteOnsitePaymentRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := payments.CompleteOnsiteInput{ReservationID: f.reservation.ID}

	_, err := f.svc.CompleteOnsitePayment(ctx, as(f.owner), input)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePayment))
	require.Equal(t, int64(0), f.paymentRows(t))

	resp, err := f.svc.CompleteOnsitePayment(ctx, as(f.admin), input)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, resp.Status)
	require.Equal(t, "onsite", resp.Provider)
	require.True(t, resp.Amount.Equal(decimal.RequireFromString("150.00")))
	require.Equal(t, enums.ReservationStatusConfirmed, f.reload(t).Status)

	again, err := f.svc.CompleteOnsitePayment(ctx, as(f.admin), input)
	require.NoError(t, err)
	require.Equal(t, resp.PaymentID, again.PaymentID)
}

func TestOnsiteChargeLeavesReservationPending(t *testing.T) {
	f := newFixture(t)
	input := f.input("")
	input.ProviderName = "onsite"

	resp, err := f.svc.ProcessPayment(context.Background(), as(f.owner), input, "")
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPending, resp.Status)
	require.Equal(t, enums.ReservationStatusPending, f.reload(t).Status)

	done, err := f.svc.CompleteOnsitePayment(context.Background(), as(f.admin), payments.CompleteOnsiteInput{ReservationID: f.reservation.ID})
	require.NoError(t, err)
	require.Equal(t, resp.PaymentID, done.PaymentID)
	require.Equal(t, enums.ReservationStatusConfirmed, f.reload(t).Status)
}

func TestCompleteOnsiteRefusesCardPaymentInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card := &models.Payment{
		ReservationID: f.reservation.ID,
		Amount:        decimal.RequireFromString("150.00"),
		Currency:      "USD",
		Status:        enums.PaymentStatusPending,
		Provider:      enums.PaymentProviderTest,
	}
	require.NoError(t, f.conn.Create(card).Error)

	_, err := f.svc.CompleteOnsitePayment(ctx, as(f.admin), payments.CompleteOnsiteInput{ReservationID: f.reservation.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	require.Equal(t, enums.ReservationStatusPending, f.reload(t).Status)

	// the card charge lands afterwards and is the one recorded
	resp, err := f.svc.ApplySettlement(ctx, payments.ProviderSettlement{
		ReservationID: f.reservation.ID,
		Provider:      enums.PaymentProviderTest,
		TransactionID: "test_card_captured",
		Status:        enums.PaymentStatusCompleted,
		Amount:        decimal.RequireFromString("150.00"),
		Currency:      "USD",
	})
	require.NoError(t, err)
	require.Equal(t, card.ID, resp.PaymentID)
	require.Equal(t, "test_card_captured", resp.TransactionID)
	require.Equal(t, "test", resp.Provider)
	require.Equal(t, int64(1), f.paymentRows(t))
	require.Equal(t, enums.ReservationStatusConfirmed, f.reload(t).Status)
}

func TestSecondCaptureForSettledPaymentIsFlagged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	onsite, err := f.svc.CompleteOnsitePayment(ctx, as(f.admin), payments.CompleteOnsiteInput{ReservationID: f.reservation.ID})
	require.NoError(t, err)

	settle := func(txn string) *payments.PaymentResponse {
		resp, err := f.svc.ApplySettlement(ctx, payments.ProviderSettlement{
			ReservationID: f.reservation.ID,
			Provider:      enums.PaymentProviderStripe,
			TransactionID: txn,
			Status:        enums.PaymentStatusCompleted,
			Amount:        decimal.RequireFromString("150.00"),
			Currency:      "USD",
		})
		require.NoError(t, err)
		return resp
	}

	resp := settle("pi_late_capture")
	require.Equal(t, onsite.PaymentID, resp.PaymentID)
	require.Equal(t, onsite.TransactionID, resp.TransactionID)
	require.Equal(t, float64(1), counterValue(t, f.registry, "payments_processed_total", "stripe", "duplicate_capture"))

	// replaying the stored transaction is not a second capture
	settle(onsite.TransactionID)
	require.Equal(t, float64(1), counterValue(t, f.registry, "payments_processed_total", "stripe", "duplicate_capture"))
}

func TestGetPaymentStatusChecksExistenceThenAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetPaymentStatus(ctx, as(f.owner), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentNotFound))

	paid, err := f.svc.ProcessPayment(ctx, as(f.owner), f.input("pm_card_visa"), "")
	require.NoError(t, err)

	stranger := testdb.SeedUser(t, f.conn, enums.RoleCustomer)
	_, err = f.svc.GetPaymentStatus(ctx, as(stranger), paid.PaymentID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	dto, err := f.svc.GetPaymentStatus(ctx, as(f.owner), paid.PaymentID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, dto.Status)

	employee := testdb.SeedUser(t, f.conn, enums.RoleEmployee)
	_, err = f.svc.GetPaymentStatus(ctx, as(employee), paid.PaymentID)
	require.NoError(t, err)
}

func TestGetPaymentStatusSettlesPendingFromProvider(t *testing.T) {
	f := newFixture(t)
	txnID := "test_pending"
	payment := &models.Payment{
		ReservationID: f.reservation.ID,
		Amount:        decimal.RequireFromString("150.00"),
		Currency:      "USD",
		Status:        enums.PaymentStatusPending,
		Provider:      enums.PaymentProviderTest,
		TransactionID: &txnID,
	}
	require.NoError(t, f.conn.Create(payment).Error)
	f.provider.SetStatus(txnID, enums.PaymentStatusCompleted)

	dto, err := f.svc.GetPaymentStatus(context.Background(), as(f.owner), payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, dto.Status)
	require.NotNil(t, dto.PaidAt)
	require.Equal(t, enums.ReservationStatusConfirmed, f.reload(t).Status)
}

func TestCreatePaymentSession(t *testing.T) {
	f := newFixture(t)

	session, err := f.svc.CreatePaymentSession(context.Background(), as(f.owner), payments.CreateSessionInput{
		ReservationID: f.reservation.ID,
		ProviderName:  "test",
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.SessionID)
	require.Contains(t, session.CheckoutURL, f.reservation.ID.String())

	_, err = f.svc.CreatePaymentSession(context.Background(), as(f.owner), payments.CreateSessionInput{
		ReservationID: f.reservation.ID,
		ProviderName:  "onsite",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePayment))
}

func TestApplySettlementConfirmsReservation(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.ApplySettlement(context.Background(), payments.ProviderSettlement{
		ReservationID: f.reservation.ID,
		Provider:      enums.PaymentProviderStripe,
		TransactionID: "pi_123",
		Status:        enums.PaymentStatusCompleted,
		Amount:        decimal.RequireFromString("150.00"),
		Currency:      "USD",
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, resp.Status)
	require.Equal(t, "pi_123", resp.TransactionID)
	require.Equal(t, enums.ReservationStatusConfirmed, f.reload(t).Status)

	// replays of the same webhook do not move anything
	again, err := f.svc.ApplySettlement(context.Background(), payments.ProviderSettlement{
		ReservationID: f.reservation.ID,
		Provider:      enums.PaymentProviderStripe,
		TransactionID: "pi_123",
		Status:        enums.PaymentStatusFailed,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, again.Status)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, provider, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), name) {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["provider"] == provider && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
