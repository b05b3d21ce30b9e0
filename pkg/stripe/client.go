// Package stripe configures the Stripe SDK for card payments, hosted
// checkout sessions and refunds.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

// PaymentsAPI is the slice of Stripe the payment providers call. Tests swap
// in a fake.
type PaymentsAPI interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Client holds per-key resource clients, so the SDK's global key is never
// touched.
type Client struct {
	mode          string
	signingSecret string
	intents       *paymentintent.Client
	refunds       *refund.Client
	sessions      *session.Client
}

var _ PaymentsAPI = (*Client)(nil)

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	if key == "" {
		return nil, errors.New("stripe: api key missing")
	}
	if secret == "" {
		return nil, errors.New("stripe: webhook signing secret missing")
	}
	mode, err := keyMode(key)
	if err != nil {
		return nil, err
	}
	if want := cfg.Environment(); mode != want {
		return nil, fmt.Errorf("stripe: %s key configured for %q environment", mode, want)
	}

	backend := stripe.GetBackend(stripe.APIBackend)
	c := &Client{
		mode:          mode,
		signingSecret: secret,
		intents:       &paymentintent.Client{B: backend, Key: key},
		refunds:       &refund.Client{B: backend, Key: key},
		sessions:      &session.Client{B: backend, Key: key},
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "mode", mode), "stripe.ready")
	}
	return c, nil
}

// keyMode maps a secret or restricted key onto "test" or "live".
func keyMode(key string) (string, error) {
	for _, prefix := range []string{"sk_", "rk_"} {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(rest, "test_"):
			return "test", nil
		case strings.HasPrefix(rest, "live_"):
			return "live", nil
		}
	}
	return "", errors.New("stripe: api key must be an sk_ or rk_ test/live key")
}

// Payments exposes the client through the provider-facing interface.
func (c *Client) Payments() PaymentsAPI {
	if c == nil {
		return nil
	}
	return c
}

func (c *Client) Mode() string {
	if c == nil {
		return ""
	}
	return c.mode
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func (c *Client) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return c.intents.New(params)
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return c.intents.Get(id, params)
}

func (c *Client) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	params.Context = ctx
	return c.refunds.New(params)
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return c.sessions.New(params)
}
