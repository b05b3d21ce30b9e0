package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/plutov/paypal/v4"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgpaypal "github.com/angelmondragon/rentalz-backend/pkg/paypal"
)

// PayPal captures buyer-approved orders. The payment method id is the
// approved order id returned by CreateSession; the transaction id stored on
// the payment is that same order id.
type PayPal struct {
	orders pkgpaypal.OrdersAPI
}

func NewPayPal(orders pkgpaypal.OrdersAPI) (*PayPal, error) {
	if orders == nil {
		return nil, errors.New("paypal orders api required")
	}
	return &PayPal{orders: orders}, nil
}

func (p *PayPal) Name() enums.PaymentProvider { return enums.PaymentProviderPayPal }

func (p *PayPal) CanProcess(req payments.ChargeRequest) bool {
	return strings.TrimSpace(req.PaymentMethodID) != "" && req.Amount.IsPositive()
}

func (p *PayPal) Charge(ctx context.Context, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	order, err := p.orders.GetOrder(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if unit := firstUnit(order); unit != nil && unit.ReferenceID != "" && unit.ReferenceID != req.ReservationID.String() {
		return &payments.ChargeResult{
			TransactionID: order.ID,
			Status:        enums.PaymentStatusFailed,
			FailureReason: "paypal order belongs to another reservation",
		}, nil
	}
	if order.Status == paypal.OrderStatusCompleted {
		return &payments.ChargeResult{TransactionID: order.ID, Status: enums.PaymentStatusCompleted}, nil
	}

	captured, err := p.orders.CaptureOrder(ctx, order.ID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, err
	}
	status := orderStatus(captured.Status)
	result := &payments.ChargeResult{TransactionID: order.ID, Status: status}
	if status == enums.PaymentStatusFailed {
		result.FailureReason = "paypal capture " + strings.ToLower(captured.Status)
	}
	return result, nil
}

func (p *PayPal) CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.SessionResult, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.ReservationID.String(),
		Description: req.Description,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: strings.ToUpper(req.Currency),
			Value:    req.Amount.StringFixed(2),
		},
	}}
	appCtx := &paypal.ApplicationContext{
		ReturnURL:  req.SuccessURL,
		CancelURL:  req.CancelURL,
		UserAction: "PAY_NOW",
	}
	order, err := p.orders.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return nil, err
	}
	result := &payments.SessionResult{SessionID: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			result.CheckoutURL = link.Href
			break
		}
	}
	return result, nil
}

func (p *PayPal) Status(ctx context.Context, transactionID string) (enums.PaymentStatus, error) {
	order, err := p.orders.GetOrder(ctx, transactionID)
	if err != nil {
		return "", err
	}
	return orderStatus(order.Status), nil
}

func (p *PayPal) Refund(ctx context.Context, req payments.RefundRequest) (*payments.RefundResult, error) {
	order, err := p.orders.GetOrder(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	captureID := captureIDOf(order)
	if captureID == "" {
		return &payments.RefundResult{Status: enums.RefundStatusFailed, FailureReason: "paypal order has no capture"}, nil
	}
	resp, err := p.orders.RefundCapture(ctx, captureID, paypal.RefundCaptureRequest{
		Amount: &paypal.Money{
			Currency: strings.ToUpper(req.Currency),
			Value:    req.Amount.StringFixed(2),
		},
		InvoiceID:   req.IdempotencyKey,
		NoteToPayer: req.Reason,
	})
	if err != nil {
		return nil, err
	}
	result := &payments.RefundResult{TransactionID: resp.ID, Status: enums.RefundStatusProcessed}
	if strings.EqualFold(resp.Status, "CANCELLED") || strings.EqualFold(resp.Status, "FAILED") {
		result.Status = enums.RefundStatusFailed
		result.FailureReason = "paypal refund " + strings.ToLower(resp.Status)
	}
	return result, nil
}

func firstUnit(order *paypal.Order) *paypal.PurchaseUnit {
	if order == nil || len(order.PurchaseUnits) == 0 {
		return nil
	}
	return &order.PurchaseUnits[0]
}

func captureIDOf(order *paypal.Order) string {
	unit := firstUnit(order)
	if unit == nil || unit.Payments == nil {
		return ""
	}
	for _, capture := range unit.Payments.Captures {
		if capture.ID != "" {
			return capture.ID
		}
	}
	return ""
}

func orderStatus(status string) enums.PaymentStatus {
	switch strings.ToUpper(status) {
	case paypal.OrderStatusCompleted:
		return enums.PaymentStatusCompleted
	case paypal.OrderStatusVoided, "DECLINED", "FAILED":
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}
