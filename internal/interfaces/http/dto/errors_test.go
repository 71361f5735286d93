package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/connector/internal/domain/integration"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyImported, http.StatusConflict},
		{ErrCodeLocked, http.StatusLocked},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodePricing, http.StatusUnprocessableEntity},
		{ErrCodeUpstream, http.StatusBadGateway},
		{ErrCodeNotConfigured, http.StatusServiceUnavailable},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestEveryCodeHasAStatus(t *testing.T) {
	for _, s := range sentinelCodes {
		_, ok := statusByCode[s.code]
		assert.True(t, ok, "sentinel %v maps to %s which has no status", s.err, s.code)
	}
	for domain, api := range domainCodes {
		_, ok := statusByCode[api]
		assert.True(t, ok, "domain code %s maps to %s which has no status", domain, api)
	}
}

func TestDomainErrorCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"LOCKED", ErrCodeLocked},
		{"NOT_CONFIGURED", ErrCodeNotConfigured},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"INVALID_QUANTITY", ErrCodeInvalidInput},
		{"INVALID_SKU", ErrCodeInvalidInput},
		{"MISSING_TAX", ErrCodeBusinessRule},
		{ErrCodeRateLimited, ErrCodeRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainErrorCode(tt.code))
		})
	}
}

func TestSentinelErrorCode(t *testing.T) {
	t.Run("wrapped sentinel", func(t *testing.T) {
		err := fmt.Errorf("queue line 7: %w", integration.ErrQueueLineNotProcessable)
		code, ok := SentinelErrorCode(err)
		require.True(t, ok)
		assert.Equal(t, ErrCodeInvalidState, code)
	})

	t.Run("storefront failures are upstream errors", func(t *testing.T) {
		code, ok := SentinelErrorCode(fmt.Errorf("pull: %w", integration.ErrStorefrontUnavailable))
		require.True(t, ok)
		assert.Equal(t, ErrCodeUpstream, code)

		code, ok = SentinelErrorCode(integration.ErrStorefrontUnauthorized)
		require.True(t, ok)
		assert.Equal(t, ErrCodeUpstreamUnauthorized, code)
	})

	t.Run("unrelated error", func(t *testing.T) {
		_, ok := SentinelErrorCode(errors.New("connection reset"))
		assert.False(t, ok)
	})
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		pageSize  int
		wantSize  int
		wantPages int
	}{
		{"exact pages", 40, 20, 20, 2},
		{"partial last page", 41, 20, 20, 3},
		{"empty", 0, 10, 10, 0},
		{"default page size", 25, 0, DefaultPageSize, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
			require.NotNil(t, resp.Meta)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.wantSize, resp.Meta.PageSize)
			assert.Equal(t, tt.wantPages, resp.Meta.TotalPages)
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("LOCKED", "line is being processed", "req-1")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLocked, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.IsZero())

	resp = NewValidationErrorResponse("bad body", "", []ValidationDetail{{Field: "base_url", Message: "is required"}})
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
}
