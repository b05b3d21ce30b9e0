package squarewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/google/uuid"
)

type stubSettler struct {
	calls []payments.ProviderSettlement
	err   error
}

func (s *stubSettler) ApplySettlement(ctx context.Context, settlement payments.ProviderSettlement) (*payments.PaymentResponse, error) {
	s.calls = append(s.calls, settlement)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.PaymentResponse{Status: settlement.Status}, nil
}

func decodeEvent(t *testing.T, body string) *SquareWebhookEvent {
	t.Helper()
	var event SquareWebhookEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return &event
}

func newTestService(t *testing.T, settler *stubSettler) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Payments: settler})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func TestService_CompletedPaymentSettles(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler)
	reservationID := uuid.New()

	event := decodeEvent(t, `{
		"event_id": "evt-1",
		"type": "payment.updated",
		"data": {"type": "payment", "id": "sq-pay-1", "object": {"payment": {
			"id": "sq-pay-1",
			"status": "COMPLETED",
			"reference_id": "`+reservationID.String()+`",
			"amount_money": {"amount": 15000, "currency": "usd"}
		}}}
	}`)
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(settler.calls) != 1 {
		t.Fatalf("expected one settlement, got %d", len(settler.calls))
	}
	got := settler.calls[0]
	if got.ReservationID != reservationID || got.TransactionID != "sq-pay-1" {
		t.Fatalf("unexpected settlement %+v", got)
	}
	if got.Status != enums.PaymentStatusCompleted || got.Provider != enums.PaymentProviderSquare {
		t.Fatalf("unexpected status/provider %s/%s", got.Status, got.Provider)
	}
	if got.Amount.StringFixed(2) != "150.00" || got.Currency != "USD" {
		t.Fatalf("unexpected amount %s %s", got.Amount.StringFixed(2), got.Currency)
	}
}

func TestService_CanceledPaymentFails(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler)

	event := decodeEvent(t, `{"type": "payment.updated", "data": {"object": {"payment": {
		"id": "sq-pay-2", "status": "CANCELED", "reference_id": "`+uuid.NewString()+`"}}}}`)
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if settler.calls[0].Status != enums.PaymentStatusFailed {
		t.Fatalf("expected FAILED, got %s", settler.calls[0].Status)
	}
	if settler.calls[0].FailureReason != "square payment canceled" {
		t.Fatalf("unexpected reason %q", settler.calls[0].FailureReason)
	}
}

func TestService_IgnoresNonTerminalAndForeignPayments(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler)

	approved := decodeEvent(t, `{"type": "payment.updated", "data": {"object": {"payment": {
		"id": "sq-pay-3", "status": "APPROVED", "reference_id": "`+uuid.NewString()+`"}}}}`)
	foreign := decodeEvent(t, `{"type": "payment.updated", "data": {"object": {"payment": {
		"id": "sq-pay-4", "status": "COMPLETED", "reference_id": "invoice-42"}}}}`)
	other := decodeEvent(t, `{"type": "refund.updated", "data": {"object": {}}}`)

	for _, event := range []*SquareWebhookEvent{approved, foreign, other} {
		if err := svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("handle %s: %v", event.Type, err)
		}
	}
	if len(settler.calls) != 0 {
		t.Fatalf("expected no settlements, got %d", len(settler.calls))
	}
}

func TestService_MissingPaymentPayload(t *testing.T) {
	svc := newTestService(t, &stubSettler{})
	err := svc.HandleEvent(context.Background(), decodeEvent(t, `{"type": "payment.updated", "data": {"object": {}}}`))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_SettlementErrorsPropagate(t *testing.T) {
	settler := &stubSettler{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	svc := newTestService(t, settler)
	event := decodeEvent(t, `{"type": "payment.updated", "data": {"object": {"payment": {
		"id": "sq-pay-5", "status": "COMPLETED", "reference_id": "`+uuid.NewString()+`"}}}}`)
	if err := svc.HandleEvent(context.Background(), event); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
