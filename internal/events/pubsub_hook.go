package events

import (
	"context"
	"encoding/json"
	"fmt"
)

const envelopeVersion = 1

// DomainPublisher publishes an encoded domain event. *pubsub.Client satisfies it.
type DomainPublisher interface {
	PublishDomainEvent(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// Envelope is the stable wire shape of domain events on Pub/Sub.
type Envelope struct {
	Version int   `json:"version"`
	Event   Event `json:"event"`
}

type pubsubHook struct {
	publisher DomainPublisher
}

// NewPubSubHook publishes every event to the domain events topic.
func NewPubSubHook(publisher DomainPublisher) Hook {
	return &pubsubHook{publisher: publisher}
}

func (h *pubsubHook) Name() string { return "pubsub" }

func (h *pubsubHook) Handle(ctx context.Context, event Event) error {
	if h.publisher == nil {
		return nil
	}
	data, err := json.Marshal(Envelope{Version: envelopeVersion, Event: event})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	attrs := map[string]string{
		"event_type":     event.Type.String(),
		"event_id":       event.ID.String(),
		"reservation_id": event.ReservationID.String(),
	}
	_, err = h.publisher.PublishDomainEvent(ctx, data, attrs)
	return err
}
