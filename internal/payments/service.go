package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/internal/events"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
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

// Service orchestrates provider charges for reservations.
type Service interface {
	ProcessPayment(ctx context.Context, actor auth.Principal, input ProcessPaymentInput, idempotencyKey string) (*PaymentResponse, error)
	CompleteOnsitePayment(ctx context.Context, actor auth.Principal, input CompleteOnsiteInput) (*PaymentResponse, error)
	GetPaymentStatus(ctx context.Context, actor auth.Principal, paymentID uuid.UUID) (*PaymentDTO, error)
	CreatePaymentSession(ctx context.Context, actor auth.Principal, input CreateSessionInput) (*SessionResponse, error)
	// ApplySettlement records an asynchronous provider outcome (webhook).
	ApplySettlement(ctx context.Context, settlement ProviderSettlement) (*PaymentResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the orchestrator.
type ServiceParams struct {
	Repo         Repository
	Reservations reservations.Repository
	Registry     *Registry
	Tx           txRunner
	Cache        *IdempotencyCache
	Events       events.Emitter
	Metrics      *metrics.PaymentMetrics
	Logger       *logger.Logger
	Config       config.PaymentsConfig
}

type service struct {
	repo         Repository
	reservations reservations.Repository
	registry     *Registry
	tx           txRunner
	cache        *IdempotencyCache
	events       events.Emitter
	metrics      *metrics.PaymentMetrics
	logg         *logger.Logger
	cfg          config.PaymentsConfig
	machine      reservations.Machine
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
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
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency cache required")
	}
	cfg := params.Config
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.DefaultCurrency) == "" {
		cfg.DefaultCurrency = enums.CurrencyUSD.String()
	}
	emitter := params.Events
	if emitter == nil {
		emitter = (*events.Dispatcher)(nil)
	}
	return &service{
		repo:         params.Repo,
		reservations: params.Reservations,
		registry:     params.Registry,
		tx:           params.Tx,
		cache:        params.Cache,
		events:       emitter,
		metrics:      params.Metrics,
		logg:         params.Logger,
		cfg:          cfg,
		machine:      reservations.NewMachine(),
		now:          time.Now,
	}, nil
}

func (s *service) ProcessPayment(ctx context.Context, actor auth.Principal, input ProcessPaymentInput, idempotencyKey string) (*PaymentResponse, error) {
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	input.ProviderName = strings.ToLower(strings.TrimSpace(input.ProviderName))
	input.PaymentMethodID = strings.TrimSpace(input.PaymentMethodID)
	if err := validateProcessInput(input); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return s.process(ctx, actor, input)
	}

	resp, replayed, err := s.cache.Do(ctx, CacheKey(actor.UserID, key), Fingerprint(input), func(ctx context.Context) (*PaymentResponse, error) {
		return s.process(ctx, actor, input)
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		s.metrics.IncPayment(resp.Provider, metrics.OutcomeReplayed)
	}
	return resp, nil
}

func (s *service) process(ctx context.Context, actor auth.Principal, input ProcessPaymentInput) (*PaymentResponse, error) {
	provider, err := s.registry.Resolve(input.ProviderName)
	if err != nil {
		return nil, err
	}

	reservation, err := s.loadReservation(ctx, input.ReservationID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(reservation.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
	}

	existing, err := s.repo.FindByReservation(ctx, reservation.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if existing != nil && existing.Status == enums.PaymentStatusCompleted {
		s.metrics.IncPayment(existing.Provider.String(), metrics.OutcomeReplayed)
		resp := toResponse(*existing)
		return &resp, nil
	}
	if reservation.Status != enums.ReservationStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not awaiting payment").
			WithDetails(map[string]any{"status": reservation.Status})
	}
	if err := s.checkAmount(ctx, reservation, input.Amount); err != nil {
		return nil, err
	}

	req := ChargeRequest{
		ReservationID:   reservation.ID,
		Amount:          input.Amount,
		Currency:        input.Currency,
		PaymentMethodID: input.PaymentMethodID,
		Description:     fmt.Sprintf("Reservation %s", reservation.ID),
	}
	if !provider.CanProcess(req) {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "provider cannot process this payment").
			WithDetails(map[string]any{"provider": provider.Name(), "currency": input.Currency})
	}

	payment, attempt, err := s.claim(ctx, reservation.ID, provider.Name(), input)
	if err != nil {
		return nil, err
	}
	if payment.Status == enums.PaymentStatusCompleted {
		resp := toResponse(*payment)
		return &resp, nil
	}

	// The charge and its bookkeeping must finish even if the caller goes away.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ProviderTimeout)
	defer cancel()
	req.IdempotencyKey = fmt.Sprintf("rz-%s-%d", reservation.ID, attempt)

	started := s.now()
	result, err := provider.Charge(callCtx, req)
	s.metrics.ObserveProviderCall(provider.Name().String(), "charge", s.now().Sub(started))
	if err != nil {
		s.metrics.IncPayment(provider.Name().String(), metrics.OutcomeFailed)
		s.markUnsettled(callCtx, payment.ID, err)
		return nil, ProviderError(provider.Name(), "charge", err)
	}

	settled, err := s.applyOutcome(callCtx, ProviderSettlement{
		ReservationID: reservation.ID,
		Provider:      provider.Name(),
		TransactionID: result.TransactionID,
		Status:        result.Status,
		Amount:        input.Amount,
		Currency:      input.Currency,
		FailureReason: result.FailureReason,
	})
	if err != nil {
		return nil, err
	}

	if settled.Status == enums.PaymentStatusFailed {
		s.metrics.IncPayment(provider.Name().String(), metrics.OutcomeFailed)
		return nil, s.declineError(callCtx, reservation.ID, result.FailureReason)
	}
	s.metrics.IncPayment(provider.Name().String(), metrics.OutcomeSucceeded)
	resp := toResponse(*settled)
	return &resp, nil
}

// claim marks the reservation's payment as in flight under the reservation
// lock so two requests without a shared key cannot both charge. It returns
// the attempt number used to derive the provider idempotency key.
func (s *service) claim(ctx context.Context, reservationID uuid.UUID, provider enums.PaymentProvider, input ProcessPaymentInput) (*models.Payment, int, error) {
	var (
		out     *models.Payment
		attempt int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reservation, err := s.reservations.WithTx(tx).FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			return mapReservationError(err)
		}
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByReservation(ctx, reservationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment != nil && payment.Status == enums.PaymentStatusCompleted {
			out = payment
			return nil
		}
		if reservation.Status != enums.ReservationStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not awaiting payment").
				WithDetails(map[string]any{"status": reservation.Status})
		}
		if payment != nil && s.inFlight(payment) {
			return pkgerrors.New(pkgerrors.CodeConflict, "a payment for this reservation is already in progress")
		}
		if payment == nil {
			payment = &models.Payment{ReservationID: reservationID}
		}
		payment.Amount = input.Amount
		payment.Currency = input.Currency
		payment.Provider = provider
		payment.Status = enums.PaymentStatusPending
		payment.FailureReason = nil
		payment.TransactionID = nil
		if input.PaymentMethodID != "" {
			method := input.PaymentMethodID
			payment.PaymentMethodID = &method
		}
		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment")
		}
		out = payment
		attempt = reservation.PaymentAttempts
		return nil
	})
	return out, attempt, err
}

// inFlight reports whether another request is mid-charge. Onsite rows stay
// PENDING until staff settle them and never block a card payment.
func (s *service) inFlight(p *models.Payment) bool {
	if p.Status != enums.PaymentStatusPending || p.Provider == enums.PaymentProviderOnsite {
		return false
	}
	return s.now().Sub(p.UpdatedAt) < 2*s.cfg.ProviderTimeout
}

// markUnsettled releases the claim after a provider error. The outcome is
// unknown; a webhook or status poll settles it if the charge went through.
func (s *service) markUnsettled(ctx context.Context, paymentID uuid.UUID, cause error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return nil
		}
		reason := truncate(cause.Error(), 500)
		payment.Status = enums.PaymentStatusFailed
		payment.FailureReason = &reason
		return repo.Save(ctx, payment)
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithPaymentID(ctx, paymentID.String()), "release payment claim", err)
	}
}

// applyOutcome records a provider outcome and moves the reservation in the
// same transaction; events are emitted after commit.
func (s *service) applyOutcome(ctx context.Context, st ProviderSettlement) (*models.Payment, error) {
	var (
		out       *models.Payment
		emitted   []events.Event
		duplicate bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		emitted = nil
		duplicate = false
		resRepo := s.reservations.WithTx(tx)
		reservation, err := resRepo.FindByIDForUpdate(ctx, st.ReservationID)
		if err != nil {
			return mapReservationError(err)
		}
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByReservation(ctx, reservation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment != nil && (payment.Status == enums.PaymentStatusCompleted || payment.Status == enums.PaymentStatusRefunded) {
			duplicate = st.Status == enums.PaymentStatusCompleted && st.TransactionID != "" &&
				(payment.TransactionID == nil || *payment.TransactionID != st.TransactionID)
			out = payment
			return nil
		}
		if payment == nil {
			payment = &models.Payment{ReservationID: reservation.ID, Amount: st.Amount, Currency: st.Currency}
		}
		payment.Provider = st.Provider
		if st.TransactionID != "" {
			txnID := st.TransactionID
			payment.TransactionID = &txnID
		}
		now := s.now().UTC()
		reservationDirty := false

		switch st.Status {
		case enums.PaymentStatusCompleted:
			payment.Status = enums.PaymentStatusCompleted
			payment.PaidAt = &now
			payment.FailureReason = nil
			if err := repo.Save(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
			}
			emitted = append(emitted, events.PaymentEvent(enums.NotificationTypePaymentCompleted,
				reservation.UserID, reservation.ID, payment.ID, payment.Status, payment.Amount, payment.Currency))
			if reservation.Status == enums.ReservationStatusPending {
				if err := s.machine.Confirm(reservation, payment); err != nil {
					return err
				}
				reservationDirty = true
				emitted = append(emitted, events.ReservationEvent(enums.NotificationTypeReservationConfirmed,
					reservation.UserID, reservation.ID, reservation.Status))
			} else if s.logg != nil {
				s.logg.Warn(s.logg.WithReservationID(ctx, reservation.ID.String()),
					fmt.Sprintf("payment captured for reservation in status %s; refund required", reservation.Status))
			}
		case enums.PaymentStatusPending:
			payment.Status = enums.PaymentStatusPending
			if err := repo.Save(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
			}
		default:
			reason := strings.TrimSpace(st.FailureReason)
			if reason == "" {
				reason = "payment declined"
			}
			payment.Status = enums.PaymentStatusFailed
			payment.FailureReason = &reason
			if err := repo.Save(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
			}
			emitted = append(emitted, events.PaymentEvent(enums.NotificationTypePaymentFailed,
				reservation.UserID, reservation.ID, payment.ID, payment.Status, payment.Amount, payment.Currency))
			reservation.PaymentAttempts++
			reservationDirty = true
			if reservation.PaymentAttempts >= s.cfg.MaxAttempts && reservation.Status == enums.ReservationStatusPending {
				cancelReason := fmt.Sprintf("payment failed after %d attempts", reservation.PaymentAttempts)
				if err := s.machine.Cancel(reservation, payment, cancelReason); err != nil {
					return err
				}
				emitted = append(emitted, events.ReservationEvent(enums.NotificationTypeReservationCancelled,
					reservation.UserID, reservation.ID, reservation.Status))
			}
		}

		if reservationDirty {
			if err := resRepo.Save(ctx, reservation); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reservation")
			}
		}
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	if duplicate {
		s.flagDuplicateCapture(ctx, out, st)
	}
	s.events.Emit(ctx, emitted...)
	return out, nil
}

// flagDuplicateCapture reports money taken twice for one reservation. The
// stored payment wins; the extra capture has to be refunded by hand.
func (s *service) flagDuplicateCapture(ctx context.Context, stored *models.Payment, st ProviderSettlement) {
	s.metrics.IncPayment(st.Provider.String(), metrics.OutcomeDuplicate)
	if s.logg == nil {
		return
	}
	storedTxn := ""
	if stored.TransactionID != nil {
		storedTxn = *stored.TransactionID
	}
	ctx = s.logg.WithPaymentID(ctx, stored.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"reservation_id":      st.ReservationID.String(),
		"stored_provider":     stored.Provider.String(),
		"stored_transaction":  storedTxn,
		"capture_provider":    st.Provider.String(),
		"capture_transaction": st.TransactionID,
		"capture_amount":      st.Amount.StringFixed(2),
	})
	s.logg.Error(ctx, "payment.duplicate_capture", pkgerrors.New(pkgerrors.CodeConflict, "capture for an already settled payment"))
}

func (s *service) declineError(ctx context.Context, reservationID uuid.UUID, reason string) error {
	details := map[string]any{"reason": reason, "maxAttempts": s.cfg.MaxAttempts}
	if reservation, err := s.reservations.FindByID(ctx, reservationID); err == nil {
		details["attempts"] = reservation.PaymentAttempts
		details["reservationStatus"] = reservation.Status
	}
	return pkgerrors.New(pkgerrors.CodePayment, "payment declined").WithDetails(details)
}

func (s *service) CompleteOnsitePayment(ctx context.Context, actor auth.Principal, input CompleteOnsiteInput) (*PaymentResponse, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "only administrators can complete onsite payments")
	}
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if !enums.Currency(currency).IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	var (
		out     *models.Payment
		emitted []events.Event
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		emitted = nil
		resRepo := s.reservations.WithTx(tx)
		reservation, err := resRepo.FindByIDForUpdate(ctx, input.ReservationID)
		if err != nil {
			return mapReservationError(err)
		}
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByReservation(ctx, reservation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment != nil && payment.Status == enums.PaymentStatusCompleted {
			out = payment
			return nil
		}
		if reservation.Status != enums.ReservationStatusPending {
			return reservations.ErrInvalidStatusUpdate(reservation.Status, enums.ReservationStatusConfirmed, "reservation is not awaiting payment")
		}

		amount := input.Amount
		if amount.IsZero() {
			price, err := resRepo.FindVehiclePrice(ctx, reservation.VehicleID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle price")
			}
			amount = reservations.Quote(price, reservation.StartDate, reservation.EndDate)
		}
		if !amount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
		}
		// A card charge mid-flight may still capture; settling onsite now
		// would take the money twice.
		if payment != nil && s.inFlight(payment) {
			return pkgerrors.New(pkgerrors.CodeConflict, "a card payment for this reservation is still in progress").
				WithDetails(map[string]any{"provider": payment.Provider, "paymentId": payment.ID})
		}

		if payment == nil {
			payment = &models.Payment{ReservationID: reservation.ID}
		}
		if payment.Provider != enums.PaymentProviderOnsite || payment.TransactionID == nil {
			txnID := "ONSITE-" + uuid.NewString()
			payment.TransactionID = &txnID
		}
		now := s.now().UTC()
		payment.Amount = amount.Round(2)
		payment.Currency = currency
		payment.Provider = enums.PaymentProviderOnsite
		payment.Status = enums.PaymentStatusCompleted
		payment.PaidAt = &now
		payment.FailureReason = nil
		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}
		if err := s.machine.Confirm(reservation, payment); err != nil {
			return err
		}
		if err := resRepo.Save(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reservation")
		}
		emitted = append(emitted,
			events.PaymentEvent(enums.NotificationTypePaymentCompleted, reservation.UserID, reservation.ID, payment.ID, payment.Status, payment.Amount, payment.Currency),
			events.ReservationEvent(enums.NotificationTypeReservationConfirmed, reservation.UserID, reservation.ID, reservation.Status),
		)
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, emitted...)
	s.metrics.IncPayment(enums.PaymentProviderOnsite.String(), metrics.OutcomeSucceeded)
	resp := toResponse(*out)
	return &resp, nil
}

func (s *service) GetPaymentStatus(ctx context.Context, actor auth.Principal, paymentID uuid.UUID) (*PaymentDTO, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	reservation, err := s.loadReservation(ctx, payment.ReservationID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(reservation.UserID) && !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}

	if refreshed := s.poll(ctx, payment); refreshed != nil {
		payment = refreshed
	}
	dto := toDTO(*payment)
	return &dto, nil
}

// poll asks the provider about a PENDING payment and records a terminal
// answer. Failures only mean the stored status is returned.
func (s *service) poll(ctx context.Context, payment *models.Payment) *models.Payment {
	if payment.Status != enums.PaymentStatusPending || payment.TransactionID == nil || payment.Provider == enums.PaymentProviderOnsite {
		return nil
	}
	provider, err := s.registry.Resolve(payment.Provider.String())
	if err != nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	started := s.now()
	status, err := provider.Status(callCtx, *payment.TransactionID)
	s.metrics.ObserveProviderCall(provider.Name().String(), "status", s.now().Sub(started))
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithPaymentID(ctx, payment.ID.String()), fmt.Sprintf("provider status poll failed: %v", err))
		}
		return nil
	}
	if status != enums.PaymentStatusCompleted && status != enums.PaymentStatusFailed {
		return nil
	}
	settled, err := s.applyOutcome(ctx, ProviderSettlement{
		ReservationID: payment.ReservationID,
		Provider:      payment.Provider,
		TransactionID: *payment.TransactionID,
		Status:        status,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		FailureReason: "declined by provider",
	})
	if err != nil {
		return nil
	}
	return settled
}

func (s *service) CreatePaymentSession(ctx context.Context, actor auth.Principal, input CreateSessionInput) (*SessionResponse, error) {
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	provider, err := s.registry.Resolve(input.ProviderName)
	if err != nil {
		return nil, err
	}
	reservation, err := s.loadReservation(ctx, input.ReservationID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(reservation.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
	}
	if reservation.Status != enums.ReservationStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not awaiting payment").
			WithDetails(map[string]any{"status": reservation.Status})
	}

	price, err := s.reservations.FindVehiclePrice(ctx, reservation.VehicleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle price")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if !enums.Currency(currency).IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	req := SessionRequest{
		ReservationID: reservation.ID,
		Amount:        reservations.Quote(price, reservation.StartDate, reservation.EndDate),
		Currency:      currency,
		Description:   fmt.Sprintf("Reservation %s", reservation.ID),
		SuccessURL:    firstNonEmpty(input.SuccessURL, s.cfg.SuccessURL),
		CancelURL:     firstNonEmpty(input.CancelURL, s.cfg.CancelURL),
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	started := s.now()
	session, err := provider.CreateSession(callCtx, req)
	s.metrics.ObserveProviderCall(provider.Name().String(), "session", s.now().Sub(started))
	if err != nil {
		return nil, ProviderError(provider.Name(), "create session", err)
	}
	return &SessionResponse{SessionID: session.SessionID, CheckoutURL: session.CheckoutURL}, nil
}

func (s *service) ApplySettlement(ctx context.Context, settlement ProviderSettlement) (*PaymentResponse, error) {
	if settlement.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if !settlement.Status.IsValid() || settlement.Status == enums.PaymentStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported settlement status")
	}
	payment, err := s.applyOutcome(ctx, settlement)
	if err != nil {
		return nil, err
	}
	outcome := metrics.OutcomeSucceeded
	if payment.Status == enums.PaymentStatusFailed {
		outcome = metrics.OutcomeFailed
	}
	s.metrics.IncPayment(settlement.Provider.String(), outcome)
	resp := toResponse(*payment)
	return &resp, nil
}

func (s *service) checkAmount(ctx context.Context, reservation *models.Reservation, amount decimal.Decimal) error {
	price, err := s.reservations.FindVehiclePrice(ctx, reservation.VehicleID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle price")
	}
	due := reservations.Quote(price, reservation.StartDate, reservation.EndDate)
	if !amount.Equal(due) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount does not match reservation total").
			WithDetails(map[string]any{"amount": amount.StringFixed(2), "due": due.StringFixed(2)})
	}
	return nil
}

func (s *service) loadReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, mapReservationError(err)
	}
	return reservation, nil
}

func validateProcessInput(input ProcessPaymentInput) error {
	fields := map[string]string{}
	if input.ReservationID == uuid.Nil {
		fields["reservationId"] = "required"
	}
	if !input.Amount.IsPositive() || !input.Amount.Equal(input.Amount.Round(2)) {
		fields["amount"] = "must be positive with at most 2 decimals"
	}
	if !enums.Currency(input.Currency).IsValid() {
		fields["currency"] = "unsupported"
	}
	if input.ProviderName == "" {
		fields["providerName"] = "required"
	}
	if input.PaymentMethodID == "" && input.ProviderName != enums.PaymentProviderOnsite.String() {
		fields["paymentMethodId"] = "required"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment request").WithDetails(fields)
	}
	return nil
}

func mapReservationError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
