package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/payments/providers"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

// settler is the slice of the payment orchestrator webhooks drive.
type settler interface {
	ApplySettlement(ctx context.Context, settlement payments.ProviderSettlement) (*payments.PaymentResponse, error)
}

type ServiceParams struct {
	Payments settler
	Logger   *logger.Logger
}

// Service turns Stripe payment events into payment settlements.
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

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return s.settleIntent(ctx, &intent, event.Type == stripe.EventTypePaymentIntentSucceeded)
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.settleSession(ctx, &session)
	default:
		return nil
	}
}

func (s *Service) settleIntent(ctx context.Context, intent *stripe.PaymentIntent, succeeded bool) error {
	reservationID, ok, err := reservationFromMetadata(intent.Metadata)
	if err != nil {
		return err
	}
	if !ok {
		// Not one of ours; acknowledge so Stripe stops retrying.
		s.skip(ctx, "payment intent without reservation metadata", intent.ID)
		return nil
	}

	settlement := payments.ProviderSettlement{
		ReservationID: reservationID,
		Provider:      enums.PaymentProviderStripe,
		TransactionID: intent.ID,
		Status:        enums.PaymentStatusCompleted,
		Amount:        fromMinorUnits(intent.Amount),
		Currency:      strings.ToUpper(string(intent.Currency)),
	}
	if !succeeded {
		settlement.Status = enums.PaymentStatusFailed
		settlement.FailureReason = "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			settlement.FailureReason = intent.LastPaymentError.Msg
		}
	}
	return s.apply(ctx, settlement)
}

func (s *Service) settleSession(ctx context.Context, session *stripe.CheckoutSession) error {
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil
	}
	metadata := session.Metadata
	if metadata[providers.MetadataReservationID] == "" && session.ClientReferenceID != "" {
		metadata = map[string]string{providers.MetadataReservationID: session.ClientReferenceID}
	}
	reservationID, ok, err := reservationFromMetadata(metadata)
	if err != nil {
		return err
	}
	if !ok {
		s.skip(ctx, "checkout session without reservation metadata", session.ID)
		return nil
	}

	transactionID := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		transactionID = session.PaymentIntent.ID
	}
	return s.apply(ctx, payments.ProviderSettlement{
		ReservationID: reservationID,
		Provider:      enums.PaymentProviderStripe,
		TransactionID: transactionID,
		Status:        enums.PaymentStatusCompleted,
		Amount:        fromMinorUnits(session.AmountTotal),
		Currency:      strings.ToUpper(string(session.Currency)),
	})
}

func (s *Service) apply(ctx context.Context, settlement payments.ProviderSettlement) error {
	if _, err := s.payments.ApplySettlement(ctx, settlement); err != nil {
		// A reservation we no longer know about will never settle; don't make
		// Stripe retry it for three days.
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			s.skip(ctx, "settlement for unknown reservation", settlement.TransactionID)
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
	s.logg.Warn(s.logg.WithField(ctx, "stripe_object_id", objectID), msg)
}

func reservationFromMetadata(metadata map[string]string) (uuid.UUID, bool, error) {
	raw := strings.TrimSpace(metadata[providers.MetadataReservationID])
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reservation id in metadata")
	}
	return id, true, nil
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
