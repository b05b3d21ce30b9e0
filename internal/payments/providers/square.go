package providers

import (
	"context"
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	pkgsquare "github.com/angelmondragon/rentalz-backend/pkg/square"
)

// SquareAPI is implemented by *square.Client.
type SquareAPI interface {
	CreatePayment(ctx context.Context, params pkgsquare.PaymentCreateParams) (*sq.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	RefundPayment(ctx context.Context, params pkgsquare.RefundParams) (*sq.PaymentRefund, error)
	CreatePaymentLink(ctx context.Context, params pkgsquare.PaymentLinkParams) (*sq.PaymentLink, error)
}

type Square struct {
	api SquareAPI
}

func NewSquare(api SquareAPI) (*Square, error) {
	if api == nil {
		return nil, errors.New("square api required")
	}
	return &Square{api: api}, nil
}

func (s *Square) Name() enums.PaymentProvider { return enums.PaymentProviderSquare }

// CanProcess accepts card nonces and stored card ids.
func (s *Square) CanProcess(req payments.ChargeRequest) bool {
	id := req.PaymentMethodID
	return (strings.HasPrefix(id, "cnon:") || strings.HasPrefix(id, "ccof:")) && req.Amount.IsPositive()
}

func (s *Square) Charge(ctx context.Context, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	payment, err := s.api.CreatePayment(ctx, pkgsquare.PaymentCreateParams{
		AmountCents:    payments.MinorUnits(req.Amount),
		Currency:       req.Currency,
		SourceID:       req.PaymentMethodID,
		ReferenceID:    req.ReservationID.String(),
		Note:           req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		// A card decline is a definitive outcome, not a transport failure.
		if pkgerrors.HasCode(err, pkgerrors.CodePayment) {
			return &payments.ChargeResult{Status: enums.PaymentStatusFailed, FailureReason: "card declined"}, nil
		}
		return nil, err
	}
	return &payments.ChargeResult{
		TransactionID: derefString(payment.GetID()),
		Status:        squarePaymentStatus(derefString(payment.GetStatus())),
	}, nil
}

func (s *Square) CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.SessionResult, error) {
	link, err := s.api.CreatePaymentLink(ctx, pkgsquare.PaymentLinkParams{
		Name:           req.Description,
		AmountCents:    payments.MinorUnits(req.Amount),
		Currency:       req.Currency,
		RedirectURL:    req.SuccessURL,
		IdempotencyKey: "link-" + req.ReservationID.String(),
	})
	if err != nil {
		return nil, err
	}
	return &payments.SessionResult{SessionID: derefString(link.GetID()), CheckoutURL: derefString(link.GetURL())}, nil
}

func (s *Square) Status(ctx context.Context, transactionID string) (enums.PaymentStatus, error) {
	payment, err := s.api.GetPayment(ctx, transactionID)
	if err != nil {
		return "", err
	}
	return squarePaymentStatus(derefString(payment.GetStatus())), nil
}

func (s *Square) Refund(ctx context.Context, req payments.RefundRequest) (*payments.RefundResult, error) {
	refund, err := s.api.RefundPayment(ctx, pkgsquare.RefundParams{
		PaymentID:      req.TransactionID,
		AmountCents:    payments.MinorUnits(req.Amount),
		Currency:       req.Currency,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	result := &payments.RefundResult{TransactionID: refund.GetID(), Status: enums.RefundStatusProcessed}
	switch derefString(refund.GetStatus()) {
	case "REJECTED", "FAILED":
		result.Status = enums.RefundStatusFailed
		result.FailureReason = "square refund " + strings.ToLower(derefString(refund.GetStatus()))
	}
	return result, nil
}

func squarePaymentStatus(status string) enums.PaymentStatus {
	switch status {
	case "COMPLETED":
		return enums.PaymentStatusCompleted
	case "FAILED", "CANCELED":
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
