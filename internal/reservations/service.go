package reservations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/internal/events"
	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	maxCommentLength     = 1000
	defaultSweepLimit    = 200
	expiredPendingReason = "payment not received in time"
	overlapConstraint    = "reservations_no_overlap"
)

// Service drives the reservation lifecycle.
type Service interface {
	Create(ctx context.Context, actor auth.Principal, input CreateReservationInput) (*ReservationDTO, error)
	Confirm(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ReservationDTO, error)
	Cancel(ctx context.Context, actor auth.Principal, input CancelInput) (*ReservationDTO, error)
	Complete(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ReservationDTO, error)
	Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ReservationDTO, error)
	List(ctx context.Context, actor auth.Principal, params pagination.Params, filters ListFilters) (*ReservationList, error)
	// CompleteEnded closes CONFIRMED reservations whose window ended before now.
	CompleteEnded(ctx context.Context, now time.Time, limit int) (int, error)
	// ExpireStalePending cancels PENDING reservations created before cutoff
	// that have no completed or outstanding payment.
	ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ServiceParams wires the reservation service.
type ServiceParams struct {
	Repo     Repository
	Ledger   *vehicles.Ledger
	Tx       txRunner
	Events   events.Emitter
	Refunder Refunder
}

type service struct {
	repo     Repository
	ledger   *vehicles.Ledger
	tx       txRunner
	events   events.Emitter
	refunder Refunder
	machine  Machine
}

// NewService builds the reservation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("availability ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	emitter := params.Events
	if emitter == nil {
		emitter = (*events.Dispatcher)(nil)
	}
	return &service{
		repo:     params.Repo,
		ledger:   params.Ledger,
		tx:       params.Tx,
		events:   emitter,
		refunder: params.Refunder,
		machine:  NewMachine(),
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Principal, input CreateReservationInput) (*ReservationDTO, error) {
	userID := input.UserID
	if userID == uuid.Nil {
		userID = actor.UserID
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	window, err := vehicles.NewWindow(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	comment, err := normalizeComment(input.Comment)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot book on behalf of another user")
	}

	reservation := &models.Reservation{
		UserID:    userID,
		VehicleID: input.VehicleID,
		StartDate: window.Start,
		EndDate:   window.End,
		Status:    enums.ReservationStatusPending,
		Comment:   comment,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.WithTx(tx).AssertAvailable(ctx, input.VehicleID, window.Start, window.End); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, reservation); err != nil {
			if db.IsExclusionViolation(err, overlapConstraint) {
				return vehicles.ErrVehicleNotAvailable(input.VehicleID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.ReservationEvent(enums.NotificationTypeReservationCreated, reservation.UserID, reservation.ID, reservation.Status))
	dto := toDTO(*reservation)
	s.attachQuote(ctx, &dto)
	return &dto, nil
}

func (s *service) Confirm(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ReservationDTO, error) {
	reservation, err := s.transition(ctx, actor, id, func(r *models.Reservation, p *models.Payment) error {
		return s.machine.Confirm(r, p)
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.ReservationEvent(enums.NotificationTypeReservationConfirmed, reservation.UserID, reservation.ID, reservation.Status))
	dto := toDTO(*reservation)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Principal, input CancelInput) (*ReservationDTO, error) {
	if input.Refund {
		if err := s.refundBeforeCancel(ctx, actor, input); err != nil {
			return nil, err
		}
	}

	reservation, err := s.transition(ctx, actor, input.ReservationID, func(r *models.Reservation, p *models.Payment) error {
		// A refund-driven cancel may already have closed the reservation.
		if input.Refund && r.Status == enums.ReservationStatusCancelled {
			return nil
		}
		return s.machine.Cancel(r, p, input.Reason)
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.ReservationEvent(enums.NotificationTypeReservationCancelled, reservation.UserID, reservation.ID, reservation.Status))
	dto := toDTO(*reservation)
	return &dto, nil
}

func (s *service) refundBeforeCancel(ctx context.Context, actor auth.Principal, input CancelInput) error {
	reservation, err := s.load(ctx, input.ReservationID)
	if err != nil {
		return err
	}
	if !actor.CanAccess(reservation.UserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
	}
	payment, err := s.repo.FindPaymentByReservation(ctx, reservation.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil || payment.Status != enums.PaymentStatusCompleted {
		return nil
	}
	if s.refunder == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "refunds are not configured")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "reservation cancelled"
	}
	return s.refunder.RefundForCancellation(ctx, actor, payment.ID, reason)
}

func (s *service) Complete(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ReservationDTO, error) {
	reservation, err := s.transition(ctx, actor, id, func(r *models.Reservation, _ *models.Payment) error {
		if !actor.IsStaff() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only staff can complete reservations")
		}
		return s.machine.Complete(r)
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.ReservationEvent(enums.NotificationTypeReservationCompleted, reservation.UserID, reservation.ID, reservation.Status))
	dto := toDTO(*reservation)
	return &dto, nil
}

// transition locks the reservation, checks access, applies fn and saves the
// result in one transaction.
func (s *service) transition(ctx context.Context, actor auth.Principal, id uuid.UUID, fn func(*models.Reservation, *models.Payment) error) (*models.Reservation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	var out *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapLoadError(err)
		}
		if !actor.CanAccess(reservation.UserID) && !actor.IsStaff() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
		}
		payment, err := repo.FindPaymentByReservation(ctx, reservation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		before := reservation.Status
		if err := fn(reservation, payment); err != nil {
			return err
		}
		if reservation.Status != before {
			if err := repo.Save(ctx, reservation); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reservation")
			}
		}
		out = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ReservationDTO, error) {
	reservation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(reservation.UserID) && !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
	}
	dto := toDTO(*reservation)
	s.attachQuote(ctx, &dto)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor auth.Principal, params pagination.Params, filters ListFilters) (*ReservationList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reservation status filter")
	}
	if !actor.IsStaff() {
		own := actor.UserID
		filters.UserID = &own
	}
	rows, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}
	page, next := pagination.Trim(rows, params.Limit, func(r models.Reservation) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := &ReservationList{Reservations: make([]ReservationDTO, 0, len(page)), NextCursor: next}
	for _, r := range page {
		out.Reservations = append(out.Reservations, toDTO(r))
	}
	return out, nil
}

func (s *service) CompleteEnded(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	rows, err := s.repo.FindConfirmedEndedBefore(ctx, now.UTC(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find ended reservations")
	}
	var (
		done int
		errs error
	)
	for _, row := range rows {
		reservation, err := s.transition(ctx, auth.SystemPrincipal, row.ID, func(r *models.Reservation, _ *models.Payment) error {
			return s.machine.Complete(r)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("complete reservation %s: %w", row.ID, err))
			continue
		}
		done++
		s.events.Emit(ctx, events.ReservationEvent(enums.NotificationTypeReservationCompleted, reservation.UserID, reservation.ID, reservation.Status))
	}
	return done, errs
}

func (s *service) ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	rows, err := s.repo.FindPendingCreatedBefore(ctx, cutoff.UTC(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale reservations")
	}
	var (
		done int
		errs error
	)
	for _, row := range rows {
		skipped := false
		reservation, err := s.transition(ctx, auth.SystemPrincipal, row.ID, func(r *models.Reservation, p *models.Payment) error {
			// Raced with a payment or a manual action since the scan, or a
			// payment is still being collected (in flight or onsite).
			if r.Status != enums.ReservationStatusPending || paymentOutstanding(p) {
				skipped = true
				return nil
			}
			return s.machine.Cancel(r, p, expiredPendingReason)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire reservation %s: %w", row.ID, err))
			continue
		}
		if skipped {
			continue
		}
		done++
		s.events.Emit(ctx, events.ReservationEvent(enums.NotificationTypeReservationCancelled, reservation.UserID, reservation.ID, reservation.Status))
	}
	return done, errs
}

func paymentOutstanding(p *models.Payment) bool {
	if p == nil {
		return false
	}
	return p.Status == enums.PaymentStatusCompleted || p.Status == enums.PaymentStatusPending
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return reservation, nil
}

// attachQuote is best effort; a vehicle lookup failure only omits the price.
func (s *service) attachQuote(ctx context.Context, dto *ReservationDTO) {
	price, err := s.repo.FindVehiclePrice(ctx, dto.VehicleID)
	if err != nil {
		return
	}
	total := Quote(price, dto.StartDate, dto.EndDate)
	dto.TotalPrice = &total
}

func mapLoadError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
}

func normalizeComment(comment *string) (*string, error) {
	if comment == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > maxCommentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment too long").
			WithDetails(map[string]any{"maxLength": maxCommentLength})
	}
	return &trimmed, nil
}
