package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

const (
	defaultSweepBatch = 100
	defaultPendingTTL = 30 * time.Minute
)

type reservationSweeper interface {
	CompleteEnded(ctx context.Context, now time.Time, limit int) (int, error)
	ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ReservationJobParams configure the reservation lifecycle sweeps.
type ReservationJobParams struct {
	Logger       *logger.Logger
	Reservations reservationSweeper
	BatchSize    int
	PendingTTL   time.Duration
}

func (p ReservationJobParams) validate() error {
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if p.Reservations == nil {
		return fmt.Errorf("reservations service required")
	}
	return nil
}

func (p ReservationJobParams) batch() int {
	if p.BatchSize <= 0 {
		return defaultSweepBatch
	}
	return p.BatchSize
}

// NewReservationCompletionJob completes confirmed reservations whose rental
// window has ended.
func NewReservationCompletionJob(params ReservationJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &reservationCompletionJob{
		logg:  params.Logger,
		svc:   params.Reservations,
		batch: params.batch(),
		now:   time.Now,
	}, nil
}

type reservationCompletionJob struct {
	logg  *logger.Logger
	svc   reservationSweeper
	batch int
	now   func() time.Time
}

func (j *reservationCompletionJob) Name() string { return "reservation-completion" }

func (j *reservationCompletionJob) Run(ctx context.Context) error {
	completed, err := j.svc.CompleteEnded(ctx, j.now().UTC(), j.batch)
	logCtx := j.logg.WithField(ctx, "reservations_completed", completed)
	if err != nil {
		return fmt.Errorf("complete ended reservations: %w", err)
	}
	j.logg.Info(logCtx, "reservation completion sweep complete")
	return nil
}

// NewPendingExpiryJob cancels pending reservations that never collected a
// payment within the pending TTL, freeing the vehicle for other renters.
func NewPendingExpiryJob(params ReservationJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &pendingExpiryJob{
		logg:  params.Logger,
		svc:   params.Reservations,
		batch: params.batch(),
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

type pendingExpiryJob struct {
	logg  *logger.Logger
	svc   reservationSweeper
	batch int
	ttl   time.Duration
	now   func() time.Time
}

func (j *pendingExpiryJob) Name() string { return "pending-reservation-expiry" }

func (j *pendingExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.svc.ExpireStalePending(ctx, cutoff, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":               cutoff,
		"reservations_expired": expired,
	})
	if err != nil {
		return fmt.Errorf("expire pending reservations: %w", err)
	}
	j.logg.Info(logCtx, "pending reservation expiry complete")
	return nil
}
