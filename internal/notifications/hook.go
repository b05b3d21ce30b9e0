package notifications

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rentalz-backend/internal/events"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
)

// Hook persists an in-app notification for each committed event and pushes
// it to any live WebSocket connection of the recipient.
type Hook struct {
	repo   inserter
	pusher Pusher
}

type inserter interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// NewHook builds the notification hook. pusher may be nil.
func NewHook(repo inserter, pusher Pusher) *Hook {
	return &Hook{repo: repo, pusher: pusher}
}

func (h *Hook) Name() string { return "notifications" }

func (h *Hook) Handle(ctx context.Context, event events.Event) error {
	if event.UserID == uuid.Nil {
		return nil
	}
	title, message := render(event)
	link := fmt.Sprintf("/reservations/%s", event.ReservationID)

	notification := &models.Notification{
		UserID:  event.UserID,
		Type:    event.Type,
		Title:   title,
		Message: message,
	}
	if event.ReservationID != uuid.Nil {
		notification.Link = &link
	}
	if err := h.repo.Insert(ctx, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if h.pusher != nil {
		h.pusher.Push(event.UserID, viewOf(*notification))
	}
	return nil
}

func render(event events.Event) (string, string) {
	amount := ""
	if event.Amount != nil {
		amount = fmt.Sprintf("%s %s", event.Amount.StringFixed(2), event.Currency)
	}
	switch event.Type {
	case enums.NotificationTypeReservationCreated:
		return "Reservation created", "Your reservation is pending payment."
	case enums.NotificationTypeReservationConfirmed:
		return "Reservation confirmed", "Your reservation is confirmed. Enjoy the ride."
	case enums.NotificationTypeReservationCancelled:
		return "Reservation cancelled", "Your reservation has been cancelled."
	case enums.NotificationTypeReservationCompleted:
		return "Reservation completed", "Thanks for renting with us."
	case enums.NotificationTypePaymentCompleted:
		return "Payment received", fmt.Sprintf("We received your payment of %s.", amount)
	case enums.NotificationTypePaymentFailed:
		return "Payment failed", fmt.Sprintf("Your payment of %s could not be processed.", amount)
	case enums.NotificationTypeRefundProcessed:
		return "Refund processed", fmt.Sprintf("A refund of %s is on its way.", amount)
	case enums.NotificationTypeRefundFailed:
		return "Refund failed", fmt.Sprintf("We could not process your refund of %s. Our team will follow up.", amount)
	default:
		return "Update", fmt.Sprintf("Reservation status: %s.", event.Status)
	}
}

var _ events.Hook = (*Hook)(nil)
