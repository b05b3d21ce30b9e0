package webhooks

import "context"

// eventGuard drops provider redeliveries of an already applied event.
type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}
