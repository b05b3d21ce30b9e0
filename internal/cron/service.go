package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/angelmondragon/rentalz-backend/pkg/metrics"
)

const defaultTick = time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Schedule *Schedule
	Lock     Lock
	Metrics  *metrics.JobMetrics
	// Tick is how often the schedule is consulted.
	Tick time.Duration
}

// Service drives a Schedule. Each tick runs under the distributed lock, so
// with several workers deployed only one of them sweeps at a time.
type Service struct {
	logg     *logger.Logger
	schedule *Schedule
	lock     Lock
	metrics  *metrics.JobMetrics
	tick     time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("cron: logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("cron: lock required")
	}
	if params.Schedule == nil {
		params.Schedule = NewSchedule()
	}
	if params.Tick <= 0 {
		params.Tick = defaultTick
	}
	return &Service{
		logg:     params.Logger,
		schedule: params.Schedule,
		lock:     params.Lock,
		metrics:  params.Metrics,
		tick:     params.Tick,
		now:      time.Now,
	}, nil
}

// Run ticks until ctx is cancelled, starting with an immediate tick.
func (s *Service) Run(ctx context.Context) error {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs": s.schedule.Names(),
		"tick": s.tick.String(),
	}), "cron.started")

	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		if err := s.Tick(ctx); err != nil {
			s.logg.Error(ctx, "cron.tick_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Tick runs every due job once. A failing job does not stop the ones after it.
func (s *Service) Tick(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	if !held {
		s.metrics.IncSkipped()
		s.logg.Debug(ctx, "cron.lock_busy")
		return nil
	}
	defer func() {
		// release even when ctx is already cancelled by shutdown
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.release_failed", err)
		}
	}()

	for _, job := range s.schedule.Due(s.now()) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.run(ctx, job)
	}
	return nil
}

func (s *Service) run(ctx context.Context, job Job) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	err := job.Run(ctx)
	took := time.Since(start)
	s.metrics.Observe(job.Name(), took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job_failed", err)
		return
	}
	s.logg.Info(ctx, "cron.job_done")
}
