package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/connector/internal/domain/integration"
)

// API error codes. Every code has a fixed HTTP status in statusByCode.
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeAlreadyImported     = "ERR_ALREADY_IMPORTED"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeLocked              = "ERR_LOCKED"

	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeBusinessRule     = "ERR_BUSINESS_RULE"
	ErrCodePricing          = "ERR_PRICING"
	ErrCodeUnresolved       = "ERR_UNRESOLVED"
	ErrCodeInstanceInactive = "ERR_INSTANCE_INACTIVE"

	// storefront side
	ErrCodeUpstream             = "ERR_UPSTREAM"
	ErrCodeUpstreamUnauthorized = "ERR_UPSTREAM_UNAUTHORIZED"
	ErrCodeNotConfigured        = "ERR_NOT_CONFIGURED"

	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

var statusByCode = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeAlreadyImported:     http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLocked:              http.StatusLocked,

	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:     http.StatusUnprocessableEntity,
	ErrCodePricing:          http.StatusUnprocessableEntity,
	ErrCodeUnresolved:       http.StatusUnprocessableEntity,
	ErrCodeInstanceInactive: http.StatusUnprocessableEntity,

	ErrCodeUpstream:             http.StatusBadGateway,
	ErrCodeUpstreamUnauthorized: http.StatusBadGateway,
	ErrCodeNotConfigured:        http.StatusServiceUnavailable,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the status for an API code, 500 when the code is unknown
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// shared.DomainError codes with a dedicated API code
var domainCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"LOCKED":               ErrCodeLocked,
	"NOT_CONFIGURED":       ErrCodeNotConfigured,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"VALIDATION_ERROR":     ErrCodeValidation,
}

// DomainErrorCode maps a shared.DomainError code to an API code.
// Unlisted INVALID_* codes are input problems, anything else is a business rule.
func DomainErrorCode(code string) string {
	if apiCode, ok := domainCodes[code]; ok {
		return apiCode
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeInvalidInput
	}
	return ErrCodeBusinessRule
}

var sentinelCodes = []struct {
	err  error
	code string
}{
	{integration.ErrInvalidPayload, ErrCodeValidation},
	{integration.ErrQueueLineEmptyData, ErrCodeValidation},
	{integration.ErrQueueInvalidKind, ErrCodeInvalidInput},
	{integration.ErrInstanceInvalidName, ErrCodeInvalidInput},
	{integration.ErrInstanceInvalidURL, ErrCodeInvalidInput},
	{integration.ErrMappingInvalidInstanceID, ErrCodeInvalidInput},
	{integration.ErrMappingInvalidProductID, ErrCodeInvalidInput},
	{integration.ErrMappingInvalidSKU, ErrCodeInvalidInput},
	{integration.ErrInvalidPriceMode, ErrCodeInvalidInput},
	{integration.ErrMappingAlreadyExists, ErrCodeAlreadyExists},
	{integration.ErrMappingNotFound, ErrCodeNotFound},
	{integration.ErrOrderAlreadyExists, ErrCodeAlreadyImported},
	{integration.ErrInstanceInactive, ErrCodeInstanceInactive},
	{integration.ErrQueueLineNotProcessable, ErrCodeInvalidState},
	{integration.ErrQueueLineNotCancellable, ErrCodeInvalidState},
	{integration.ErrProductNotResolved, ErrCodeUnresolved},
	{integration.ErrTaxNotResolved, ErrCodeUnresolved},
	{integration.ErrPriceUnresolvable, ErrCodePricing},
	{integration.ErrNegativePrice, ErrCodePricing},
	{integration.ErrInvalidQuantity, ErrCodePricing},
	{integration.ErrInvalidTaxPercent, ErrCodePricing},
	{integration.ErrZeroAllocationWeight, ErrCodePricing},
	{integration.ErrStorefrontUnauthorized, ErrCodeUpstreamUnauthorized},
	{integration.ErrStorefrontUnavailable, ErrCodeUpstream},
	{integration.ErrStorefrontRequestFailed, ErrCodeUpstream},
}

// SentinelErrorCode returns the API code for a wrapped integration sentinel error
func SentinelErrorCode(err error) (string, bool) {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code, true
		}
	}
	return "", false
}
