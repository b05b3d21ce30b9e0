package reservations

import (
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateReservationInput books a vehicle on behalf of UserID. A zero UserID
// books for the calling principal.
type CreateReservationInput struct {
	UserID    uuid.UUID
	VehicleID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Comment   *string
}

// CancelInput cancels a reservation. Refund asks for the completed payment to
// be refunded in full before the cancellation is applied.
type CancelInput struct {
	ReservationID uuid.UUID
	Reason        string
	Refund        bool
}

type ListFilters struct {
	UserID    *uuid.UUID
	VehicleID *uuid.UUID
	Status    *enums.ReservationStatus
}

// ReservationDTO is the API projection of a reservation.
type ReservationDTO struct {
	ID              uuid.UUID               `json:"reservationId"`
	UserID          uuid.UUID               `json:"userId"`
	VehicleID       uuid.UUID               `json:"vehicleId"`
	StartDate       time.Time               `json:"startDate"`
	EndDate         time.Time               `json:"endDate"`
	Status          enums.ReservationStatus `json:"status"`
	Comment         *string                 `json:"comment,omitempty"`
	TotalPrice      *decimal.Decimal        `json:"totalPrice,omitempty"`
	PaymentAttempts int                     `json:"paymentAttempts"`
	CancelReason    *string                 `json:"cancelReason,omitempty"`
	ConfirmedAt     *time.Time              `json:"confirmedAt,omitempty"`
	CancelledAt     *time.Time              `json:"cancelledAt,omitempty"`
	CompletedAt     *time.Time              `json:"completedAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

type ReservationList struct {
	Reservations []ReservationDTO `json:"reservations"`
	NextCursor   string           `json:"nextCursor,omitempty"`
}

func toDTO(r models.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:              r.ID,
		UserID:          r.UserID,
		VehicleID:       r.VehicleID,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		Status:          r.Status,
		Comment:         r.Comment,
		PaymentAttempts: r.PaymentAttempts,
		CancelReason:    r.CancelReason,
		ConfirmedAt:     r.ConfirmedAt,
		CancelledAt:     r.CancelledAt,
		CompletedAt:     r.CompletedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
