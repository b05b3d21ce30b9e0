package vehicles

import (
	"context"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Window is a half-open booking interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates and normalizes a booking interval to UTC.
func NewWindow(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, pkgerrors.New(pkgerrors.CodeValidation, "start and end dates are required")
	}
	if !start.Before(end) {
		return Window{}, pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date").
			WithDetails(map[string]any{"startDate": start, "endDate": end})
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether the two windows intersect. Touching endpoints do not.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// BookedWindow is an existing non-cancelled reservation occupying a vehicle.
type BookedWindow struct {
	ReservationID uuid.UUID
	Window        Window
}

// Ledger answers whether a vehicle is free for a window. Callers that go on to
// insert a reservation must use a ledger bound to their transaction (WithTx)
// so the vehicle row lock covers both the check and the insert.
type Ledger struct {
	repo Repository
	tx   txRunner
	// locked is set on tx-bound ledgers; reads go through FindByIDForUpdate.
	locked bool
}

// NewLedger builds an availability ledger.
func NewLedger(repo Repository, tx txRunner) (*Ledger, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vehicle repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Ledger{repo: repo, tx: tx}, nil
}

// WithTx returns a ledger that reads through tx and row-locks the vehicle.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{repo: l.repo.WithTx(tx), tx: l.tx, locked: true}
}

// CheckAvailability reports whether the vehicle can be booked for [start, end).
func (l *Ledger) CheckAvailability(ctx context.Context, vehicleID uuid.UUID, start, end time.Time) (bool, error) {
	found, err := l.check(ctx, vehicleID, start, end)
	if err != nil {
		return false, err
	}
	return found == nil, nil
}

// AssertAvailable fails with a conflict error when the vehicle cannot be booked.
func (l *Ledger) AssertAvailable(ctx context.Context, vehicleID uuid.UUID, start, end time.Time) error {
	found, err := l.check(ctx, vehicleID, start, end)
	if err != nil {
		return err
	}
	if found != nil {
		return found.toError(vehicleID)
	}
	return nil
}

// ErrVehicleNotAvailable is returned when a window collides with an existing booking
// or the vehicle is out of rotation.
func ErrVehicleNotAvailable(vehicleID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "vehicle not available for the requested period").
		WithDetails(map[string]any{"vehicleId": vehicleID})
}

func (l *Ledger) check(ctx context.Context, vehicleID uuid.UUID, start, end time.Time) (*conflict, error) {
	window, err := NewWindow(start, end)
	if err != nil {
		return nil, err
	}
	if l.locked {
		return l.evaluate(ctx, vehicleID, window)
	}

	var found *conflict
	err = l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var evalErr error
		found, evalErr = l.WithTx(tx).evaluate(ctx, vehicleID, window)
		return evalErr
	})
	return found, err
}

type conflict struct {
	reason        string
	reservationID uuid.UUID
}

func (c *conflict) toError(vehicleID uuid.UUID) error {
	details := map[string]any{"vehicleId": vehicleID, "reason": c.reason}
	if c.reservationID != uuid.Nil {
		details["conflictingReservationId"] = c.reservationID
	}
	return ErrVehicleNotAvailable(vehicleID).WithDetails(details)
}

func (l *Ledger) evaluate(ctx context.Context, vehicleID uuid.UUID, window Window) (*conflict, error) {
	vehicle, err := l.loadVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status != enums.VehicleStatusAvailable {
		return &conflict{reason: "vehicle status " + vehicle.Status.String()}, nil
	}

	booked, err := l.repo.BookedWindows(ctx, vehicleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booked windows")
	}
	for _, existing := range booked {
		if window.Overlaps(existing.Window) {
			return &conflict{reason: "overlapping reservation", reservationID: existing.ReservationID}, nil
		}
	}
	return nil, nil
}

func (l *Ledger) loadVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error) {
	var (
		vehicle *models.Vehicle
		err     error
	)
	if l.locked {
		vehicle, err = l.repo.FindByIDForUpdate(ctx, vehicleID)
	} else {
		vehicle, err = l.repo.FindByID(ctx, vehicleID)
	}
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	return vehicle, nil
}
