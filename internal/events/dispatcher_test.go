package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsEveryHookDespiteFailures(t *testing.T) {
	var seen []string
	record := func(name string) HookFunc {
		return HookFunc{HookName: name, Fn: func(ctx context.Context, event Event) error {
			seen = append(seen, name)
			return nil
		}}
	}
	failing := HookFunc{HookName: "failing", Fn: func(ctx context.Context, event Event) error {
		seen = append(seen, "failing")
		return errors.New("boom")
	}}
	panicking := HookFunc{HookName: "panicking", Fn: func(ctx context.Context, event Event) error {
		seen = append(seen, "panicking")
		panic("kaboom")
	}}

	d := NewDispatcher(logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), record("first"), failing, panicking, record("last"))
	require.NotPanics(t, func() {
		d.Emit(context.Background(), ReservationEvent(enums.NotificationTypeReservationCreated, uuid.New(), uuid.New(), enums.ReservationStatusPending))
	})
	require.Equal(t, []string{"first", "failing", "panicking", "last"}, seen)
}

func TestDispatcherStampsIDAndTime(t *testing.T) {
	var got Event
	d := NewDispatcher(nil, HookFunc{HookName: "capture", Fn: func(ctx context.Context, event Event) error {
		got = event
		return nil
	}})
	d.Emit(context.Background(), Event{Type: enums.NotificationTypeSystem})

	require.NotEqual(t, uuid.Nil, got.ID)
	require.False(t, got.OccurredAt.IsZero())
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	require.NotPanics(t, func() {
		d.Register(HookFunc{HookName: "x"})
		d.Emit(context.Background(), Event{})
	})
}

type stubPublisher struct {
	data  []byte
	attrs map[string]string
	err   error
}

func (s *stubPublisher) PublishDomainEvent(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	s.data = data
	s.attrs = attrs
	return "msg-1", s.err
}

func TestPubSubHookEncodesEnvelope(t *testing.T) {
	pub := &stubPublisher{}
	hook := NewPubSubHook(pub)

	reservationID := uuid.New()
	event := ReservationEvent(enums.NotificationTypeReservationConfirmed, uuid.New(), reservationID, enums.ReservationStatusConfirmed)
	event.ID = uuid.New()
	require.NoError(t, hook.Handle(context.Background(), event))

	var env Envelope
	require.NoError(t, json.Unmarshal(pub.data, &env))
	require.Equal(t, envelopeVersion, env.Version)
	require.Equal(t, reservationID, env.Event.ReservationID)
	require.Equal(t, "CONFIRMED", env.Event.Status)
	require.Equal(t, enums.NotificationTypeReservationConfirmed.String(), pub.attrs["event_type"])
	require.Equal(t, reservationID.String(), pub.attrs["reservation_id"])
}

func TestPubSubHookSurfacesPublishError(t *testing.T) {
	hook := NewPubSubHook(&stubPublisher{err: errors.New("unavailable")})
	require.Error(t, hook.Handle(context.Background(), Event{Type: enums.NotificationTypeSystem}))
}
