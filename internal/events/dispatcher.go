package events

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Hook consumes committed events.
type Hook interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, event Event) error
}

func (h HookFunc) Name() string { return h.HookName }

func (h HookFunc) Handle(ctx context.Context, event Event) error {
	if h.Fn == nil {
		return nil
	}
	return h.Fn(ctx, event)
}

// Emitter is what services depend on to announce committed transitions.
type Emitter interface {
	Emit(ctx context.Context, events ...Event)
}

// Dispatcher runs every registered hook for each event. Delivery is best
// effort: failures and panics are logged and never reach the caller, whose
// transaction has already committed.
type Dispatcher struct {
	hooks []Hook
	logg  *logger.Logger
	now   func() time.Time
}

// NewDispatcher builds a dispatcher with the provided hooks.
func NewDispatcher(logg *logger.Logger, hooks ...Hook) *Dispatcher {
	d := &Dispatcher{logg: logg, now: time.Now}
	for _, h := range hooks {
		d.Register(h)
	}
	return d
}

// Register appends a hook; nil hooks are ignored.
func (d *Dispatcher) Register(h Hook) {
	if d == nil || h == nil {
		return
	}
	d.hooks = append(d.hooks, h)
}

// Emit delivers events to every hook in registration order.
func (d *Dispatcher) Emit(ctx context.Context, events ...Event) {
	if d == nil || len(d.hooks) == 0 {
		return
	}
	for _, event := range events {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = d.now().UTC()
		}
		if err := d.deliver(ctx, event); err != nil && d.logg != nil {
			logCtx := d.logg.WithReservationID(ctx, event.ReservationID.String())
			d.logg.Warn(logCtx, fmt.Sprintf("event %s delivery incomplete: %v", event.Type, err))
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) error {
	var errs error
	for _, h := range d.hooks {
		errs = multierr.Append(errs, d.run(ctx, h, event))
	}
	return errs
}

func (d *Dispatcher) run(ctx context.Context, h Hook, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook %s panicked: %v", h.Name(), r)
		}
	}()
	if hookErr := h.Handle(ctx, event); hookErr != nil {
		return fmt.Errorf("hook %s: %w", h.Name(), hookErr)
	}
	return nil
}
