package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Client wraps the Square payments, refunds and payment link APIs for a
// single location.
type Client struct {
	sdk          *sqclient.Client
	environment  string
	locationID   string
	signatureKey string
	webhookURL   string
	logger       *logger.Logger
}

// NewClient validates credentials and builds the SDK client.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(accessToken),
	)

	logg.Info(ctx, fmt.Sprintf("square client initialized (%s)", env))
	return &Client{
		sdk:          sdk,
		environment:  env,
		locationID:   locationID,
		signatureKey: strings.TrimSpace(cfg.WebhookSignatureKey),
		webhookURL:   strings.TrimSpace(cfg.WebhookURL),
		logger:       logg,
	}, nil
}

// SigningSecret returns the webhook subscription signature key.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signatureKey
}

// NotificationURL is the public URL Square signs alongside the body.
func (c *Client) NotificationURL() string {
	if c == nil {
		return ""
	}
	return c.webhookURL
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreatePayment charges the source and autocompletes the payment.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	req := params.toSquareRequest(c.locationID, c.ensureIdempotencyKey("payment", params.IdempotencyKey))
	c.log(ctx, "request", "create_payment", map[string]any{
		"reference_id": params.ReferenceID,
		"amount":       params.AmountCents,
		"source_id":    params.SourceID,
	})

	resp, err := c.sdk.Payments.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "create payment")
	}

	payment := resp.GetPayment()
	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": stringValue(payment.GetID()),
		"status":     stringValue(payment.GetStatus()),
	})
	return payment, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	resp, err := c.sdk.Payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: paymentID})
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error(), "payment_id": paymentID})
		return nil, c.mapSquareError(err, "get payment")
	}
	return resp.GetPayment(), nil
}

func (c *Client) RefundPayment(ctx context.Context, params RefundParams) (*sq.PaymentRefund, error) {
	req := params.toSquareRequest(c.ensureIdempotencyKey("refund", params.IdempotencyKey))
	c.log(ctx, "request", "refund_payment", map[string]any{
		"payment_id": params.PaymentID,
		"amount":     params.AmountCents,
	})

	resp, err := c.sdk.Refunds.RefundPayment(ctx, req)
	if err != nil {
		c.log(ctx, "error", "refund_payment", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "refund payment")
	}

	refund := resp.GetRefund()
	c.log(ctx, "response", "refund_payment", map[string]any{
		"refund_id": refund.GetID(),
		"status":    stringValue(refund.GetStatus()),
	})
	return refund, nil
}

// CreatePaymentLink returns a hosted checkout link for a fixed amount.
func (c *Client) CreatePaymentLink(ctx context.Context, params PaymentLinkParams) (*sq.PaymentLink, error) {
	req := params.toSquareRequest(c.locationID, c.ensureIdempotencyKey("link", params.IdempotencyKey))
	c.log(ctx, "request", "create_payment_link", map[string]any{"amount": params.AmountCents})

	resp, err := c.sdk.Checkout.PaymentLinks.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "create_payment_link", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "create payment link")
	}
	return resp.GetPaymentLink(), nil
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if key := strings.TrimSpace(provided); key != "" {
		return key
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{"operation": op, "phase": phase}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Error(ctx, "square "+op, errors.New(fmt.Sprint(fields["error"])))
		return
	}
	c.logger.Debug(ctx, "square "+phase)
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"source", "nonce", "token", "card", "secret"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// mapSquareError turns SDK failures into payment errors. Declines surface as
// CodePayment with the Square error codes attached.
func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
	}
	code := domainCodeForStatus(apiErr.StatusCode)
	var codes []string
	for _, sqErr := range extractSquareErrors(apiErr) {
		if sqErr == nil {
			continue
		}
		codes = append(codes, string(sqErr.Code))
		switch {
		case sqErr.Code == sq.ErrorCodeIdempotencyKeyReused:
			code = pkgerrors.CodeIdempotency
		case sqErr.Category == sq.ErrorCategoryAuthenticationError:
			code = pkgerrors.CodeUnauthorized
		case sqErr.Category == sq.ErrorCategoryPaymentMethodError:
			code = pkgerrors.CodePayment
		}
	}
	wrapped := pkgerrors.Wrap(code, err, fmt.Sprintf("square %s failed", op))
	if len(codes) > 0 {
		return wrapped.WithDetails(map[string]any{"squareErrors": codes})
	}
	return wrapped
}

func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil || apiErr.Unwrap() == nil {
		return nil
	}
	raw := strings.TrimSpace(apiErr.Unwrap().Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusPaymentRequired:
		return pkgerrors.CodePayment
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	if _, ok := baseURLs[env]; !ok {
		return "", errInvalidSquareEnv
	}
	return env, nil
}
