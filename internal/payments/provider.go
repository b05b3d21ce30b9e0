package payments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is a payment processor capability resolved by name at runtime.
type Provider interface {
	Name() enums.PaymentProvider
	// CanProcess reports whether the provider accepts the charge (currency,
	// method shape) before any side effect happens.
	CanProcess(req ChargeRequest) bool
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error)
	Status(ctx context.Context, transactionID string) (enums.PaymentStatus, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// ChargeRequest asks a provider to collect Amount for a reservation.
type ChargeRequest struct {
	ReservationID   uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	// IdempotencyKey is forwarded to providers that deduplicate server side.
	IdempotencyKey string
	Description    string
}

// ChargeResult is the provider outcome. A declined charge is a result with
// Status FAILED, not an error; errors mean the outcome is unknown.
type ChargeResult struct {
	TransactionID string
	Status        enums.PaymentStatus
	FailureReason string
}

type SessionRequest struct {
	ReservationID uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	Description   string
	SuccessURL    string
	CancelURL     string
}

type SessionResult struct {
	SessionID   string
	CheckoutURL string
}

type RefundRequest struct {
	PaymentID     uuid.UUID
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Reason        string
	// IdempotencyKey is the refund id so provider retries collapse.
	IdempotencyKey string
}

// RefundResult reports a provider refund. Status is PROCESSED or FAILED.
type RefundResult struct {
	TransactionID string
	Status        enums.RefundStatus
	FailureReason string
}

// Registry resolves providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[enums.PaymentProvider]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[enums.PaymentProvider]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider; nil providers are ignored.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Resolve returns the named provider or a payment error when it is unknown.
func (r *Registry) Resolve(name string) (Provider, error) {
	key := enums.PaymentProvider(strings.ToLower(strings.TrimSpace(name)))
	r.mu.RLock()
	p, ok := r.providers[key]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "unknown payment provider").
			WithDetails(map[string]any{"provider": name, "available": r.Names()})
	}
	return p, nil
}

// Names lists registered providers in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name.String())
	}
	sort.Strings(out)
	return out
}

// ProviderError wraps a provider transport or API failure as a retryable
// payment error.
func ProviderError(provider enums.PaymentProvider, op string, err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePayment {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodePayment, err, fmt.Sprintf("%s %s failed", provider, op)).
		WithDetails(map[string]any{"provider": provider, "operation": op})
}

// MinorUnits converts a two-decimal amount to the integer minor unit used by
// card processors.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
