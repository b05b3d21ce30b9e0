package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type signingClient interface {
	SigningSecret() string
}

// StripeWebhook reconciles payment intents that settle after the checkout call returned.
func StripeWebhook(svc StripeWebhookService, client signingClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}
		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature"))
			return
		}

		apply(ctx, w, logg, guard, event.ID, "stripe", func() error {
			return svc.HandleEvent(ctx, &event)
		})
	}
}

// apply runs handle at most once per event id. A failed handle releases the
// mark so the provider's retry is processed.
func apply(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, guard eventGuard, eventID, provider string, handle func() error) {
	seen, err := guard.CheckAndMark(ctx, eventID)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency"))
		return
	}
	if seen {
		responses.WriteSuccess(w, map[string]bool{"duplicate": true})
		return
	}
	if err := handle(); err != nil {
		_ = guard.Delete(ctx, eventID)
		responses.WriteError(ctx, logg, w, err)
		return
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"provider": provider, "event_id": eventID}), "webhook event processed")
	}
	responses.WriteSuccess(w, map[string]bool{"received": true})
}
