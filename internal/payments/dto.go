package payments

import (
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcessPaymentInput is the body of POST /payments.
type ProcessPaymentInput struct {
	ReservationID   uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	ProviderName    string
}

// PaymentResponse is what ProcessPayment returns and what the idempotency
// cache replays.
type PaymentResponse struct {
	PaymentID     uuid.UUID           `json:"paymentId"`
	ReservationID uuid.UUID           `json:"reservationId"`
	TransactionID string              `json:"transactionId"`
	Status        enums.PaymentStatus `json:"status"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Provider      string              `json:"provider"`
}

// CompleteOnsiteInput settles a reservation paid at the counter.
type CompleteOnsiteInput struct {
	ReservationID uuid.UUID
	// Amount defaults to the reservation quote when zero.
	Amount   decimal.Decimal
	Currency string
}

type CreateSessionInput struct {
	ReservationID uuid.UUID
	ProviderName  string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type SessionResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// ProviderSettlement is an asynchronous provider confirmation (webhook or
// status poll) for a reservation's charge.
type ProviderSettlement struct {
	ReservationID uuid.UUID
	Provider      enums.PaymentProvider
	TransactionID string
	Status        enums.PaymentStatus
	Amount        decimal.Decimal
	Currency      string
	FailureReason string
}

// PaymentDTO is the GET /payments/{id} projection.
type PaymentDTO struct {
	ID            uuid.UUID             `json:"paymentId"`
	ReservationID uuid.UUID             `json:"reservationId"`
	Amount        decimal.Decimal       `json:"amount"`
	Currency      string                `json:"currency"`
	Status        enums.PaymentStatus   `json:"status"`
	Provider      enums.PaymentProvider `json:"provider"`
	TransactionID *string               `json:"transactionId,omitempty"`
	FailureReason *string               `json:"failureReason,omitempty"`
	PaidAt        *time.Time            `json:"paidAt,omitempty"`
	RefundedAt    *time.Time            `json:"refundedAt,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

func toResponse(p models.Payment) PaymentResponse {
	resp := PaymentResponse{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		Status:        p.Status,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Provider:      p.Provider.String(),
	}
	if p.TransactionID != nil {
		resp.TransactionID = *p.TransactionID
	}
	return resp
}

func toDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
		FailureReason: p.FailureReason,
		PaidAt:        p.PaidAt,
		RefundedAt:    p.RefundedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
