package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgstripe "github.com/angelmondragon/rentalz-backend/pkg/stripe"
)

// MetadataReservationID links Stripe objects back to a reservation; the
// webhook reads it to reconcile asynchronous outcomes.
const MetadataReservationID = "reservation_id"

type Stripe struct {
	api pkgstripe.PaymentsAPI
}

func NewStripe(api pkgstripe.PaymentsAPI) (*Stripe, error) {
	if api == nil {
		return nil, errors.New("stripe api required")
	}
	return &Stripe{api: api}, nil
}

func (s *Stripe) Name() enums.PaymentProvider { return enums.PaymentProviderStripe }

func (s *Stripe) CanProcess(req payments.ChargeRequest) bool {
	return strings.HasPrefix(req.PaymentMethodID, "pm_") && req.Amount.IsPositive()
}

func (s *Stripe) Charge(ctx context.Context, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(payments.MinorUnits(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.AddMetadata(MetadataReservationID, req.ReservationID.String())
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := s.api.CreatePaymentIntent(ctx, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			result := &payments.ChargeResult{Status: enums.PaymentStatusFailed, FailureReason: stripeErr.Msg}
			if stripeErr.PaymentIntent != nil {
				result.TransactionID = stripeErr.PaymentIntent.ID
			}
			return result, nil
		}
		return nil, err
	}
	result := &payments.ChargeResult{TransactionID: intent.ID, Status: intentStatus(intent.Status)}
	if result.Status == enums.PaymentStatusFailed && intent.LastPaymentError != nil {
		result.FailureReason = intent.LastPaymentError.Msg
	}
	return result, nil
}

func (s *Stripe) CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.SessionResult, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ReservationID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(payments.MinorUnits(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{MetadataReservationID: req.ReservationID.String()},
		},
	}
	params.AddMetadata(MetadataReservationID, req.ReservationID.String())
	sess, err := s.api.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, err
	}
	return &payments.SessionResult{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

func (s *Stripe) Status(ctx context.Context, transactionID string) (enums.PaymentStatus, error) {
	intent, err := s.api.GetPaymentIntent(ctx, transactionID)
	if err != nil {
		return "", err
	}
	return intentStatus(intent.Status), nil
}

func (s *Stripe) Refund(ctx context.Context, req payments.RefundRequest) (*payments.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Amount:        stripe.Int64(payments.MinorUnits(req.Amount)),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.AddMetadata("payment_id", req.PaymentID.String())
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	out, err := s.api.CreateRefund(ctx, params)
	if err != nil {
		return nil, err
	}
	result := &payments.RefundResult{TransactionID: out.ID, Status: enums.RefundStatusProcessed}
	if out.Status == stripe.RefundStatusFailed || out.Status == stripe.RefundStatusCanceled {
		result.Status = enums.RefundStatusFailed
		result.FailureReason = string(out.FailureReason)
	}
	return result, nil
}

// intentStatus maps a PaymentIntent status onto the payment lifecycle.
// Anything still moving at Stripe stays PENDING.
func intentStatus(status stripe.PaymentIntentStatus) enums.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return enums.PaymentStatusCompleted
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}
