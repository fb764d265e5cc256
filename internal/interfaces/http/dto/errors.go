package dto

import (
	"net/http"

	"github.com/bizops/backend/internal/domain/shared"
)

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeInternal         = "ERR_INTERNAL"
	ErrCodeStoreUnavailable = "ERR_STORE_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeValidation  = "ERR_VALIDATION"
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	ErrCodeTooLarge    = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
)

// Capacity error codes
const (
	ErrCodeRateLimited    = "ERR_RATE_LIMITED"
	ErrCodeTooManyStreams = "ERR_TOO_MANY_STREAMS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeStoreUnavailable: http.StatusServiceUnavailable,

	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,
	ErrCodeTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,

	ErrCodeRateLimited:    http.StatusTooManyRequests,
	ErrCodeTooManyStreams: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodes maps shared.DomainError codes to API codes
var domainCodes = map[string]string{
	shared.CodeValidation:          ErrCodeValidation,
	shared.CodeForbidden:           ErrCodeForbidden,
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeAlreadyExists:       ErrCodeAlreadyExists,
	shared.CodeStoreUnavailable:    ErrCodeStoreUnavailable,
	shared.CodeInvalidState:        ErrCodeInvalidState,
	shared.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Codes already in API form, and unknown codes, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodes[code]; ok {
		return apiCode
	}
	return code
}
