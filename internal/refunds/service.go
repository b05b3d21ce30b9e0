package refunds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/internal/events"
	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/angelmondragon/rentalz-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxReasonLength = 500

// Service returns money for completed payments.
type Service interface {
	ProcessRefund(ctx context.Context, actor auth.Principal, input RefundInput) (*RefundResponse, error)
	ListForPayment(ctx context.Context, actor auth.Principal, paymentID uuid.UUID) ([]RefundResponse, error)
	// RefundForCancellation refunds the full payment ahead of a cancel.
	RefundForCancellation(ctx context.Context, actor auth.Principal, paymentID uuid.UUID, reason string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo            Repository
	Payments        payments.Repository
	Reservations    reservations.Repository
	Registry        *payments.Registry
	Tx              txRunner
	Events          events.Emitter
	Metrics         *metrics.PaymentMetrics
	Logger          *logger.Logger
	ProviderTimeout time.Duration
}

type service struct {
	repo         Repository
	payments     payments.Repository
	reservations reservations.Repository
	registry     *payments.Registry
	tx           txRunner
	events       events.Emitter
	metrics      *metrics.PaymentMetrics
	logg         *logger.Logger
	timeout      time.Duration
	machine      reservations.Machine
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refund repository required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if params.Reservations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reservation repository required")
	}
	if params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider registry required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	timeout := params.ProviderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	emitter := params.Events
	if emitter == nil {
		emitter = (*events.Dispatcher)(nil)
	}
	return &service{
		repo:         params.Repo,
		payments:     params.Payments,
		reservations: params.Reservations,
		registry:     params.Registry,
		tx:           params.Tx,
		events:       emitter,
		metrics:      params.Metrics,
		logg:         params.Logger,
		timeout:      timeout,
		machine:      reservations.NewMachine(),
		now:          time.Now,
	}, nil
}

func (s *service) ProcessRefund(ctx context.Context, actor auth.Principal, input RefundInput) (*RefundResponse, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if !input.Amount.IsPositive() || !input.Amount.Equal(input.Amount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive with at most 2 decimals")
	}
	return s.refund(ctx, actor, input.PaymentID, &input.Amount, input.Reason, true)
}

func (s *service) RefundForCancellation(ctx context.Context, actor auth.Principal, paymentID uuid.UUID, reason string) error {
	_, err := s.refund(ctx, actor, paymentID, nil, reason, false)
	return err
}

func (s *service) ListForPayment(ctx context.Context, actor auth.Principal, paymentID uuid.UUID) ([]RefundResponse, error) {
	if _, _, err := s.authorize(ctx, actor, paymentID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	out := make([]RefundResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toResponse(r))
	}
	return out, nil
}

// refund runs request → provider → settle. A nil amount means the full
// payment amount. Direct refunds are an admin action; customers get their
// money back by cancelling.
func (s *service) refund(ctx context.Context, actor auth.Principal, paymentID uuid.UUID, amount *decimal.Decimal, reason string, direct bool) (*RefundResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "requested by customer"
	}
	if len(reason) > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is too long")
	}

	payment, _, err := s.authorize(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}
	if direct && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can refund a payment directly; cancel the reservation instead")
	}
	provider, err := s.registry.Resolve(payment.Provider.String())
	if err != nil {
		return nil, err
	}

	refund, payment, err := s.request(ctx, paymentID, amount, reason)
	if err != nil {
		return nil, err
	}

	// The provider call and its bookkeeping outlive the caller.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	txnID := ""
	if payment.TransactionID != nil {
		txnID = *payment.TransactionID
	}
	started := s.now()
	result, callErr := provider.Refund(callCtx, payments.RefundRequest{
		PaymentID:      payment.ID,
		TransactionID:  txnID,
		Amount:         refund.Amount,
		Currency:       refund.Currency,
		Reason:         reason,
		IdempotencyKey: refund.ID.String(),
	})
	s.metrics.ObserveProviderCall(provider.Name().String(), "refund", s.now().Sub(started))

	if callErr != nil || result.Status != enums.RefundStatusProcessed {
		failure := "refund rejected by provider"
		if callErr != nil {
			failure = callErr.Error()
		} else if result.FailureReason != "" {
			failure = result.FailureReason
		}
		s.metrics.IncRefund(provider.Name().String(), metrics.OutcomeFailed)
		s.fail(callCtx, refund.ID, failure)
		out := pkgerrors.New(pkgerrors.CodeRefund, "refund failed").
			WithDetails(map[string]any{"refundId": refund.ID, "reason": failure})
		if callErr != nil {
			out = pkgerrors.Wrap(pkgerrors.CodeRefund, callErr, "refund failed").
				WithDetails(map[string]any{"refundId": refund.ID, "reason": failure})
		}
		return nil, out
	}

	settled, err := s.settle(callCtx, refund.ID, result.TransactionID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncRefund(provider.Name().String(), metrics.OutcomeSucceeded)
	resp := toResponse(*settled)
	return &resp, nil
}

// authorize loads the payment and its reservation: existence first, then
// ownership (owner or ADMIN).
func (s *service) authorize(ctx context.Context, actor auth.Principal, paymentID uuid.UUID) (*models.Payment, *models.Reservation, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	reservation, err := s.reservations.FindByID(ctx, payment.ReservationID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if !actor.CanAccess(reservation.UserID) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	return payment, reservation, nil
}

// request records a REQUESTED refund under the payment lock so only one
// refund per payment is in flight.
func (s *service) request(ctx context.Context, paymentID uuid.UUID, amount *decimal.Decimal, reason string) (*models.Refund, *models.Payment, error) {
	var (
		refund  *models.Refund
		payment *models.Payment
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = s.payments.WithTx(tx).FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if payment.Status != enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeRefund, "only completed payments can be refunded").
				WithDetails(map[string]any{"paymentStatus": payment.Status})
		}
		value := payment.Amount
		if amount != nil {
			value = *amount
		}
		if value.GreaterThan(payment.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds payment amount").
				WithDetails(map[string]any{"amount": value.StringFixed(2), "paid": payment.Amount.StringFixed(2)})
		}

		repo := s.repo.WithTx(tx)
		pending, err := repo.FindRequested(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refunds")
		}
		if pending != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "a refund for this payment is already in progress")
		}

		refund = &models.Refund{
			PaymentID:   payment.ID,
			Amount:      value,
			Currency:    payment.Currency,
			Reason:      reason,
			Status:      enums.RefundStatusRequested,
			RequestedAt: s.now().UTC(),
		}
		if err := repo.Create(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return refund, payment, nil
}

// settle marks the refund PROCESSED and the payment REFUNDED. Only a full
// refund cancels the reservation, and never a completed one.
func (s *service) settle(ctx context.Context, refundID uuid.UUID, providerTxn string) (*models.Refund, error) {
	var (
		refund  *models.Refund
		emitted []events.Event
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		emitted = nil
		repo := s.repo.WithTx(tx)
		var err error
		refund, err = repo.FindByID(ctx, refundID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
		}
		payRepo := s.payments.WithTx(tx)
		payment, err := payRepo.FindByIDForUpdate(ctx, refund.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		resRepo := s.reservations.WithTx(tx)
		reservation, err := resRepo.FindByIDForUpdate(ctx, payment.ReservationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock reservation")
		}

		now := s.now().UTC()
		refund.Status = enums.RefundStatusProcessed
		refund.ProcessedAt = &now
		if providerTxn != "" {
			refund.TransactionID = &providerTxn
		}
		if err := repo.Save(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refund")
		}

		payment.Status = enums.PaymentStatusRefunded
		payment.RefundedAt = &now
		if err := payRepo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}
		emitted = append(emitted, events.RefundEvent(enums.NotificationTypeRefundProcessed,
			reservation.UserID, reservation.ID, payment.ID, refund.ID, refund.Status, refund.Amount, refund.Currency))

		full := refund.Amount.GreaterThanOrEqual(payment.Amount)
		if full && reservations.CanTransition(reservation.Status, enums.ReservationStatusCancelled) {
			if err := s.machine.Cancel(reservation, payment, fmt.Sprintf("refunded: %s", refund.Reason)); err != nil {
				return err
			}
			if err := resRepo.Save(ctx, reservation); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reservation")
			}
			emitted = append(emitted, events.ReservationEvent(enums.NotificationTypeReservationCancelled,
				reservation.UserID, reservation.ID, reservation.Status))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, emitted...)
	return refund, nil
}

// fail records the provider failure; the payment stays COMPLETED.
func (s *service) fail(ctx context.Context, refundID uuid.UUID, failure string) {
	var emitted []events.Event
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		emitted = nil
		repo := s.repo.WithTx(tx)
		refund, err := repo.FindByID(ctx, refundID)
		if err != nil {
			return err
		}
		if len(failure) > maxReasonLength {
			failure = failure[:maxReasonLength]
		}
		refund.Status = enums.RefundStatusFailed
		refund.FailureReason = &failure
		if err := repo.Save(ctx, refund); err != nil {
			return err
		}
		payment, err := s.payments.WithTx(tx).FindByID(ctx, refund.PaymentID)
		if err != nil {
			return err
		}
		reservation, err := s.reservations.WithTx(tx).FindByID(ctx, payment.ReservationID)
		if err != nil {
			return err
		}
		emitted = append(emitted, events.RefundEvent(enums.NotificationTypeRefundFailed,
			reservation.UserID, reservation.ID, payment.ID, refund.ID, refund.Status, refund.Amount, refund.Currency))
		return nil
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "refund_id", refundID.String()), "record refund failure", err)
		}
		return
	}
	s.events.Emit(ctx, emitted...)
}
