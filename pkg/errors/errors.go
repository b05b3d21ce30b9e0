// Package errors defines the typed error codes services return and the HTTP
// shape each one takes at the edge.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Provider failures, unknown providers and onsite misuse all map to
	// CodePayment so a client may retry with the same idempotency key.
	CodePayment         Code = "PAYMENT_ERROR"
	CodePaymentNotFound Code = "PAYMENT_NOT_FOUND"
	CodeRefund          Code = "REFUND_ERROR"
)

// Metadata is how a code is rendered to API clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type flag uint8

const (
	retryable flag = 1 << iota
	details
)

func meta(status int, public string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&details != 0,
	}
}

var registry = map[Code]Metadata{
	CodeValidation:      meta(http.StatusBadRequest, "validation failed", details),
	CodeUnauthorized:    meta(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:       meta(http.StatusForbidden, "access denied", 0),
	CodeNotFound:        meta(http.StatusNotFound, "resource not found", 0),
	CodeConflict:        meta(http.StatusConflict, "conflict detected", 0),
	CodeStateConflict:   meta(http.StatusUnprocessableEntity, "state transition disallowed", details),
	CodeIdempotency:     meta(http.StatusConflict, "idempotency key reused", details),
	CodeRateLimit:       meta(http.StatusTooManyRequests, "rate limit exceeded", 0),
	CodeInternal:        meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:      meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|details),
	CodePayment:         meta(http.StatusPaymentRequired, "payment failed", retryable|details),
	CodePaymentNotFound: meta(http.StatusNotFound, "payment not found", 0),
	CodeRefund:          meta(http.StatusUnprocessableEntity, "refund rejected", details),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := registry[code]; ok {
		return m
	}
	return registry[CodeInternal]
}

// Error is a coded error. The message is shown to clients for 4xx codes, so
// it must not carry internals; put those in the cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches cause to a new coded error. A nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets structured details and returns e for chaining.
func (e *Error) WithDetails(d any) *Error {
	if e != nil {
		e.details = d
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches any *Error with the same code, so a bare New(code, "") works as
// a sentinel with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

func IsRetryable(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.code).Retryable
}
