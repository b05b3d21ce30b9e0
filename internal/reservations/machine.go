package reservations

import (
	"strings"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

// allowedTransitions lists the only legal moves; terminal states have none.
var allowedTransitions = map[enums.ReservationStatus][]enums.ReservationStatus{
	enums.ReservationStatusPending:   {enums.ReservationStatusConfirmed, enums.ReservationStatusCancelled},
	enums.ReservationStatusConfirmed: {enums.ReservationStatusCompleted, enums.ReservationStatusCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to enums.ReservationStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ErrInvalidStatusUpdate is returned for any disallowed transition.
func ErrInvalidStatusUpdate(from, to enums.ReservationStatus, reason string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid reservation status update").
		WithDetails(map[string]any{"from": from, "to": to, "reason": reason})
}

// Machine applies guarded lifecycle transitions to a reservation loaded inside
// the caller's transaction. A rejected transition leaves the row untouched.
type Machine struct {
	now func() time.Time
}

func NewMachine() Machine {
	return Machine{now: time.Now}
}

func (m Machine) clock() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now().UTC()
}

// Confirm moves PENDING -> CONFIRMED once the reservation's payment is COMPLETED.
func (m Machine) Confirm(reservation *models.Reservation, payment *models.Payment) error {
	to := enums.ReservationStatusConfirmed
	if !CanTransition(reservation.Status, to) {
		return ErrInvalidStatusUpdate(reservation.Status, to, "transition not allowed")
	}
	if payment == nil || payment.ReservationID != reservation.ID || payment.Status != enums.PaymentStatusCompleted {
		return ErrInvalidStatusUpdate(reservation.Status, to, "completed payment required")
	}
	now := m.clock()
	reservation.Status = to
	reservation.ConfirmedAt = &now
	return nil
}

// Cancel moves PENDING|CONFIRMED -> CANCELLED. A completed payment that has
// not been refunded blocks the move; refund it first.
func (m Machine) Cancel(reservation *models.Reservation, payment *models.Payment, reason string) error {
	to := enums.ReservationStatusCancelled
	if !CanTransition(reservation.Status, to) {
		return ErrInvalidStatusUpdate(reservation.Status, to, "transition not allowed")
	}
	if payment != nil && payment.Status == enums.PaymentStatusCompleted {
		return ErrInvalidStatusUpdate(reservation.Status, to, "completed payment must be refunded first")
	}
	now := m.clock()
	reservation.Status = to
	reservation.CancelledAt = &now
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reservation.CancelReason = &trimmed
	}
	return nil
}

// Complete moves CONFIRMED -> COMPLETED.
func (m Machine) Complete(reservation *models.Reservation) error {
	to := enums.ReservationStatusCompleted
	if !CanTransition(reservation.Status, to) {
		return ErrInvalidStatusUpdate(reservation.Status, to, "transition not allowed")
	}
	now := m.clock()
	reservation.Status = to
	reservation.CompletedAt = &now
	return nil
}
