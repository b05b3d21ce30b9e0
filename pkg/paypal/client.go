package paypal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plutov/paypal/v4"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

const (
	sandboxEnv = "sandbox"
	liveEnv    = "live"
)

var (
	errCredentialsRequired = errors.New("paypal client id and secret are required")
	errInvalidPayPalEnv    = fmt.Errorf("paypal environment must be %q or %q", sandboxEnv, liveEnv)
)

var baseURLs = map[string]string{
	sandboxEnv: paypal.APIBaseSandBox,
	liveEnv:    paypal.APIBaseLive,
}

// OrdersAPI is the slice of the PayPal Orders v2 API used for reservation
// checkout: an order is created (session), approved by the buyer, then
// captured.
type OrdersAPI interface {
	CreateOrder(ctx context.Context, intent string, units []paypal.PurchaseUnitRequest, source *paypal.PaymentSource, appCtx *paypal.ApplicationContext) (*paypal.Order, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string, req paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
	RefundCapture(ctx context.Context, captureID string, req paypal.RefundCaptureRequest) (*paypal.RefundResponse, error)
}

// Client holds an authenticated PayPal REST client.
type Client struct {
	api         *paypal.Client
	environment string
}

// NewClient authenticates against PayPal and caches the access token.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	base, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidPayPalEnv
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || secret == "" {
		return nil, errCredentialsRequired
	}

	api, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("creating paypal client: %w", err)
	}
	if _, err := api.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("paypal access token: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("paypal client initialized (%s)", env))
	}
	return &Client{api: api, environment: env}, nil
}

// Orders exposes the orders API. *paypal.Client satisfies OrdersAPI directly.
func (c *Client) Orders() OrdersAPI {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}
