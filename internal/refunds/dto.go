package refunds

import (
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundInput is the body of POST /payments/{id}/refund.
type RefundInput struct {
	PaymentID uuid.UUID
	Amount    decimal.Decimal
	Reason    string
}

type RefundResponse struct {
	RefundID      uuid.UUID          `json:"refundId"`
	PaymentID     uuid.UUID          `json:"paymentId"`
	TransactionID string             `json:"transactionId"`
	Status        enums.RefundStatus `json:"status"`
	Amount        decimal.Decimal    `json:"amount"`
	Currency      string             `json:"currency"`
	Reason        string             `json:"reason"`
	RequestedAt   time.Time          `json:"requestedAt"`
	ProcessedAt   *time.Time         `json:"processedAt,omitempty"`
	FailureReason *string            `json:"failureReason,omitempty"`
}

func toResponse(r models.Refund) RefundResponse {
	resp := RefundResponse{
		RefundID:      r.ID,
		PaymentID:     r.PaymentID,
		Status:        r.Status,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Reason:        r.Reason,
		RequestedAt:   r.RequestedAt,
		ProcessedAt:   r.ProcessedAt,
		FailureReason: r.FailureReason,
	}
	if r.TransactionID != nil {
		resp.TransactionID = *r.TransactionID
	}
	return resp
}
