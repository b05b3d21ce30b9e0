package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// PaymentCreateParams charges a card nonce or stored card id.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	SourceID       string
	ReferenceID    string
	Note           string
	IdempotencyKey string
}

func (p PaymentCreateParams) toSquareRequest(locationID, idempotencyKey string) *sq.CreatePaymentRequest {
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       strings.TrimSpace(p.SourceID),
		LocationID:     ptrString(locationID),
		AmountMoney:    moneyPtr(p.AmountCents, p.Currency),
		Autocomplete:   boolPtr(true),
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	return req
}

// RefundParams returns money for a completed Square payment.
type RefundParams struct {
	PaymentID      string
	AmountCents    int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

func (p RefundParams) toSquareRequest(idempotencyKey string) *sq.RefundPaymentRequest {
	req := &sq.RefundPaymentRequest{
		IdempotencyKey: idempotencyKey,
		AmountMoney:    moneyPtr(p.AmountCents, p.Currency),
		PaymentID:      ptrString(strings.TrimSpace(p.PaymentID)),
	}
	if trimmed := strings.TrimSpace(p.Reason); trimmed != "" {
		req.Reason = ptrString(trimmed)
	}
	return req
}

// PaymentLinkParams describes a hosted quick-pay checkout page.
type PaymentLinkParams struct {
	Name           string
	AmountCents    int64
	Currency       string
	RedirectURL    string
	IdempotencyKey string
}

func (p PaymentLinkParams) toSquareRequest(locationID, idempotencyKey string) *sqcheckout.CreatePaymentLinkRequest {
	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		QuickPay: &sq.QuickPay{
			Name:       strings.TrimSpace(p.Name),
			PriceMoney: moneyPtr(p.AmountCents, p.Currency),
			LocationID: locationID,
		},
	}
	if trimmed := strings.TrimSpace(p.RedirectURL); trimmed != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(trimmed)}
	}
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount <= 0 {
		return nil
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "USD"
	}
	c := sq.Currency(code)
	return &sq.Money{Amount: &amount, Currency: &c}
}
