package cron

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type slot struct {
	job   Job
	every time.Duration
	next  time.Time
}

// Schedule decides which jobs are due on a tick. Jobs added with a zero
// cadence run on every tick; slower jobs wait until their cadence elapses.
type Schedule struct {
	mu    sync.Mutex
	slots []*slot
}

func NewSchedule() *Schedule {
	return &Schedule{}
}

// Every registers job at the given cadence and returns the schedule for
// chaining. Nil jobs are ignored.
func (s *Schedule) Every(every time.Duration, job Job) *Schedule {
	if job == nil {
		return s
	}
	s.mu.Lock()
	s.slots = append(s.slots, &slot{job: job, every: every})
	s.mu.Unlock()
	return s
}

// Due returns the jobs to run at now, in registration order, and books their
// next run.
func (s *Schedule) Due(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Job
	for _, sl := range s.slots {
		if now.Before(sl.next) {
			continue
		}
		due = append(due, sl.job)
		sl.next = now.Add(sl.every)
	}
	return due
}

// Names lists registered jobs for startup logging.
func (s *Schedule) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.slots))
	for i, sl := range s.slots {
		names[i] = sl.job.Name()
	}
	return names
}
