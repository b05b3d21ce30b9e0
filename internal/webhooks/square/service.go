package squarewebhook

import (
	"context"
	"strings"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type settler interface {
	ApplySettlement(ctx context.Context, settlement payments.ProviderSettlement) (*payments.PaymentResponse, error)
}

type ServiceParams struct {
	Payments settler
	Logger   *logger.Logger
}

// Service settles reservations from Square payment notifications.
type Service struct {
	payments settler
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

// SquarePayment is the subset of the Square payment object we settle from.
type SquarePayment struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	ReferenceID string       `json:"reference_id"`
	AmountMoney *SquareMoney `json:"amount_money"`
}

type SquareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// HandleEvent processes Square payment events.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		if event.Data.Object.Payment == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
		}
		return s.settle(ctx, event.Data.Object.Payment)
	default:
		return nil
	}
}

func (s *Service) settle(ctx context.Context, payment *SquarePayment) error {
	status, terminal := settlementStatus(payment.Status)
	if !terminal {
		return nil
	}
	raw := strings.TrimSpace(payment.ReferenceID)
	if raw == "" {
		s.skip(ctx, "square payment without reference id", payment.ID)
		return nil
	}
	reservationID, err := uuid.Parse(raw)
	if err != nil {
		s.skip(ctx, "square payment with foreign reference id", payment.ID)
		return nil
	}

	settlement := payments.ProviderSettlement{
		ReservationID: reservationID,
		Provider:      enums.PaymentProviderSquare,
		TransactionID: payment.ID,
		Status:        status,
	}
	if payment.AmountMoney != nil {
		settlement.Amount = decimal.New(payment.AmountMoney.Amount, -2)
		settlement.Currency = strings.ToUpper(payment.AmountMoney.Currency)
	}
	if status == enums.PaymentStatusFailed {
		settlement.FailureReason = "square payment " + strings.ToLower(payment.Status)
	}

	if _, err := s.payments.ApplySettlement(ctx, settlement); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			s.skip(ctx, "settlement for unknown reservation", payment.ID)
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) skip(ctx context.Context, msg, objectID string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "square_object_id", objectID), msg)
}

// settlementStatus maps Square payment states; only terminal ones settle.
func settlementStatus(status string) (enums.PaymentStatus, bool) {
	switch strings.ToUpper(status) {
	case "COMPLETED":
		return enums.PaymentStatusCompleted, true
	case "FAILED", "CANCELED":
		return enums.PaymentStatusFailed, true
	default:
		return "", false
	}
}
