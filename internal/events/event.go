// Package events fans reservation, payment and refund transitions out to
// post-commit hooks (in-app notifications, Pub/Sub).
package events

import (
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event describes a committed state change. Hooks only ever see events whose
// transaction has already committed.
type Event struct {
	ID            uuid.UUID              `json:"eventId"`
	Type          enums.NotificationType `json:"type"`
	UserID        uuid.UUID              `json:"userId"`
	ReservationID uuid.UUID              `json:"reservationId"`
	PaymentID     *uuid.UUID             `json:"paymentId,omitempty"`
	RefundID      *uuid.UUID             `json:"refundId,omitempty"`
	Status        string                 `json:"status"`
	Amount        *decimal.Decimal       `json:"amount,omitempty"`
	Currency      string                 `json:"currency,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	OccurredAt    time.Time              `json:"occurredAt"`
}

// ReservationEvent builds an event for a reservation lifecycle transition.
func ReservationEvent(kind enums.NotificationType, userID, reservationID uuid.UUID, status enums.ReservationStatus) Event {
	return Event{
		Type:          kind,
		UserID:        userID,
		ReservationID: reservationID,
		Status:        status.String(),
	}
}

// PaymentEvent builds an event for a payment outcome.
func PaymentEvent(kind enums.NotificationType, userID, reservationID, paymentID uuid.UUID, status enums.PaymentStatus, amount decimal.Decimal, currency string) Event {
	return Event{
		Type:          kind,
		UserID:        userID,
		ReservationID: reservationID,
		PaymentID:     &paymentID,
		Status:        status.String(),
		Amount:        &amount,
		Currency:      currency,
	}
}

// RefundEvent builds an event for a refund outcome.
func RefundEvent(kind enums.NotificationType, userID, reservationID, paymentID, refundID uuid.UUID, status enums.RefundStatus, amount decimal.Decimal, currency string) Event {
	return Event{
		Type:          kind,
		UserID:        userID,
		ReservationID: reservationID,
		PaymentID:     &paymentID,
		RefundID:      &refundID,
		Status:        status.String(),
		Amount:        &amount,
		Currency:      currency,
	}
}
