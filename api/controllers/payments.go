package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/api/validators"
	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/refunds"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

const idempotencyHeader = "Idempotency-Key"

type paymentProcessRequest struct {
	ReservationID   uuid.UUID       `json:"reservationId" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" validate:"required,currency"`
	PaymentMethodID string          `json:"paymentMethodId"`
	ProviderName    string          `json:"providerName" validate:"required"`
}

type paymentSessionRequest struct {
	ReservationID uuid.UUID `json:"reservationId" validate:"required"`
	ProviderName  string    `json:"providerName" validate:"required"`
	Currency      string    `json:"currency" validate:"required,currency"`
	SuccessURL    string    `json:"successUrl" validate:"required,url"`
	CancelURL     string    `json:"cancelUrl" validate:"required,url"`
}

type paymentOnsiteRequest struct {
	ReservationID uuid.UUID       `json:"reservationId" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,currency"`
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"max=500"`
}

// PaymentProcess charges a reservation. Retries carrying the same
// Idempotency-Key replay the first successful response.
func PaymentProcess(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentProcessRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		out, err := svc.ProcessPayment(r.Context(), actor, payments.ProcessPaymentInput{
			ReservationID:   body.ReservationID,
			Amount:          body.Amount,
			Currency:        body.Currency,
			PaymentMethodID: body.PaymentMethodID,
			ProviderName:    body.ProviderName,
		}, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuidParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.GetPaymentStatus(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func PaymentCreateSession(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.CreatePaymentSession(r.Context(), actor, payments.CreateSessionInput{
			ReservationID: body.ReservationID,
			ProviderName:  body.ProviderName,
			Currency:      body.Currency,
			SuccessURL:    body.SuccessURL,
			CancelURL:     body.CancelURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// PaymentCompleteOnsite is the staff counter flow for cash or card-present payments.
func PaymentCompleteOnsite(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentOnsiteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.CompleteOnsitePayment(r.Context(), actor, payments.CompleteOnsiteInput{
			ReservationID: body.ReservationID,
			Amount:        body.Amount,
			Currency:      body.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func RefundCreate(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := uuidParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body refundRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.ProcessRefund(r.Context(), actor, refunds.RefundInput{
			PaymentID: paymentID,
			Amount:    body.Amount,
			Reason:    strings.TrimSpace(body.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func RefundList(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := uuidParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.ListForPayment(r.Context(), actor, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"refunds": out})
	}
}
