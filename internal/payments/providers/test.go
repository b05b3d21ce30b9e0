package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// Payment method ids with a fixed outcome on the test provider.
const (
	TestMethodDeclined      = "pm_card_declined"
	TestMethodProviderError = "pm_provider_error"
)

var ErrTestProviderUnavailable = errors.New("test provider unavailable")

// Test is a deterministic in-process provider for local development and
// tests. Charges succeed unless the method id says otherwise; retries with
// the same idempotency key return the original transaction.
type Test struct {
	charges atomic.Int64
	refunds atomic.Int64

	mu         sync.Mutex
	byKey      map[string]*payments.ChargeResult
	statuses   map[string]enums.PaymentStatus
	failRefund bool
}

type TestOption func(*Test)

// WithFailingRefunds makes every refund come back FAILED.
func WithFailingRefunds() TestOption {
	return func(t *Test) { t.failRefund = true }
}

func NewTest(opts ...TestOption) *Test {
	t := &Test{
		byKey:    make(map[string]*payments.ChargeResult),
		statuses: make(map[string]enums.PaymentStatus),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Test) Name() enums.PaymentProvider { return enums.PaymentProviderTest }

func (t *Test) CanProcess(req payments.ChargeRequest) bool {
	return req.PaymentMethodID != "" && req.Amount.IsPositive()
}

func (t *Test) Charge(ctx context.Context, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	t.charges.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.PaymentMethodID == TestMethodProviderError {
		return nil, ErrTestProviderUnavailable
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if req.IdempotencyKey != "" {
		if prior, ok := t.byKey[req.IdempotencyKey]; ok {
			out := *prior
			return &out, nil
		}
	}
	result := &payments.ChargeResult{TransactionID: "test_" + uuid.NewString(), Status: enums.PaymentStatusCompleted}
	if req.PaymentMethodID == TestMethodDeclined {
		result.Status = enums.PaymentStatusFailed
		result.FailureReason = "card declined"
	}
	t.statuses[result.TransactionID] = result.Status
	if req.IdempotencyKey != "" {
		t.byKey[req.IdempotencyKey] = result
	}
	out := *result
	return &out, nil
}

func (t *Test) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.SessionResult, error) {
	id := "cs_test_" + uuid.NewString()
	return &payments.SessionResult{
		SessionID:   id,
		CheckoutURL: fmt.Sprintf("https://checkout.test/%s?reservation=%s", id, req.ReservationID),
	}, nil
}

func (t *Test) Status(_ context.Context, transactionID string) (enums.PaymentStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.statuses[transactionID]
	if !ok {
		return "", fmt.Errorf("unknown test transaction %q", transactionID)
	}
	return status, nil
}

// SetStatus changes what Status reports for a transaction, simulating an
// asynchronous settlement.
func (t *Test) SetStatus(transactionID string, status enums.PaymentStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[transactionID] = status
}

func (t *Test) Refund(_ context.Context, req payments.RefundRequest) (*payments.RefundResult, error) {
	t.refunds.Add(1)
	if t.failRefund {
		return &payments.RefundResult{Status: enums.RefundStatusFailed, FailureReason: "refund rejected by test provider"}, nil
	}
	return &payments.RefundResult{TransactionID: "re_test_" + uuid.NewString(), Status: enums.RefundStatusProcessed}, nil
}

// Charges reports how many times Charge was called.
func (t *Test) Charges() int64 { return t.charges.Load() }

func (t *Test) Refunds() int64 { return t.refunds.Load() }
