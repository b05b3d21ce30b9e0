package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:      {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeUnauthorized:    {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
		CodeForbidden:       {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
		CodeNotFound:        {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeConflict:        {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
		CodeStateConflict:   {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
		CodeIdempotency:     {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
		CodeRateLimit:       {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
		CodeInternal:        {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:      {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		CodePayment:         {HTTPStatus: http.StatusPaymentRequired, PublicMessage: "payment failed", Retryable: true, DetailsAllowed: true},
		CodePaymentNotFound: {HTTPStatus: http.StatusNotFound, PublicMessage: "payment not found"},
		CodeRefund:          {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "refund rejected", DetailsAllowed: true},
	}
	require.Len(t, registry, len(cases))
	for code, want := range cases {
		assert.Equal(t, want, MetadataFor(code), code)
	}
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	bare := New(CodeValidation, "missing pickup date")
	assert.Equal(t, "VALIDATION_ERROR: missing pickup date", bare.Error())
	assert.Nil(t, bare.Details())

	wrapped := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load vehicle")
	assert.Equal(t, "DEPENDENCY_ERROR: load vehicle: dial tcp: refused", wrapped.Error())
	assert.Equal(t, "load vehicle", wrapped.Message())

	assert.Equal(t, "NOT_FOUND: vehicle 7 not found", Newf(CodeNotFound, "vehicle %d not found", 7).Error())
	assert.Equal(t, "CONFLICT: taken", Wrap(CodeConflict, nil, "taken").Error())
}

func TestWithDetailsChains(t *testing.T) {
	err := New(CodeStateConflict, "cannot confirm").WithDetails(map[string]any{"from": "CANCELLED"})
	assert.Equal(t, map[string]any{"from": "CANCELLED"}, err.Details())

	var nilErr *Error
	assert.Nil(t, nilErr.WithDetails("x"))
	assert.Equal(t, CodeInternal, nilErr.Code())
	assert.Empty(t, nilErr.Error())
}

func TestChainHelpers(t *testing.T) {
	cause := stdErrors.New("gateway timeout")
	provider := Wrap(CodePayment, cause, "charge failed")
	outer := fmt.Errorf("process payment: %w", provider)

	assert.ErrorIs(t, outer, cause)
	assert.Same(t, provider, As(outer))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(cause))

	assert.True(t, HasCode(outer, CodePayment))
	assert.False(t, HasCode(outer, CodeValidation))

	assert.True(t, IsRetryable(outer))
	assert.False(t, IsRetryable(New(CodeValidation, "bad")))
	assert.False(t, IsRetryable(cause))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("cancel: %w", New(CodeStateConflict, "already completed"))
	assert.ErrorIs(t, err, New(CodeStateConflict, ""))
	assert.NotErrorIs(t, err, New(CodeConflict, ""))
}
