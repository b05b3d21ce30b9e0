package providers

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

// Onsite records the intent to pay at the counter. The charge stays PENDING
// until staff complete it with CompleteOnsitePayment.
type Onsite struct{}

func NewOnsite() *Onsite { return &Onsite{} }

func (Onsite) Name() enums.PaymentProvider { return enums.PaymentProviderOnsite }

func (Onsite) CanProcess(req payments.ChargeRequest) bool { return req.Amount.IsPositive() }

func (Onsite) Charge(_ context.Context, _ payments.ChargeRequest) (*payments.ChargeResult, error) {
	return &payments.ChargeResult{TransactionID: "ONSITE-" + uuid.NewString(), Status: enums.PaymentStatusPending}, nil
}

func (Onsite) CreateSession(context.Context, payments.SessionRequest) (*payments.SessionResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "onsite payments have no checkout session")
}

func (Onsite) Status(context.Context, string) (enums.PaymentStatus, error) {
	return enums.PaymentStatusPending, nil
}

// Refund hands cash back at the counter; there is nothing to call.
func (Onsite) Refund(_ context.Context, _ payments.RefundRequest) (*payments.RefundResult, error) {
	return &payments.RefundResult{TransactionID: "ONSITE-REFUND-" + uuid.NewString(), Status: enums.RefundStatusProcessed}, nil
}
