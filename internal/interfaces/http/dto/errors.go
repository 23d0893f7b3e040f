package dto

import "net/http"

// Error code constants returned by the API

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Processing error codes surfaced as hard failures rather than blocks
const (
	// ErrCodeAlreadyProcessed is used when a settlement was committed by a concurrent run
	ErrCodeAlreadyProcessed = "ERR_ALREADY_PROCESSED"
	// ErrCodeProcessingConflict is used when another run holds the processing lease
	ErrCodeProcessingConflict = "ERR_PROCESSING_CONFLICT"
	// ErrCodeInvalidDocNumber is used when the settlement doc number cannot be parsed
	ErrCodeInvalidDocNumber = "ERR_INVALID_DOC_NUMBER"
	// ErrCodeEmptyAuditData is used when no audit rows exist for the invoice
	ErrCodeEmptyAuditData = "ERR_EMPTY_AUDIT_DATA"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeConflict:     http.StatusConflict,

	ErrCodeAlreadyProcessed:   http.StatusConflict,
	ErrCodeProcessingConflict: http.StatusConflict,
	ErrCodeInvalidDocNumber:   http.StatusUnprocessableEntity,
	ErrCodeEmptyAuditData:     http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes.
// Unknown domain codes fall through unchanged and resolve to 500.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyProcessed,
	"INVALID_INPUT":        ErrCodeBadRequest,
	"CONCURRENCY_CONFLICT": ErrCodeProcessingConflict,
	"UNAUTHENTICATED":      ErrCodeUnauthorized,
	"INVALID_DOC_NUMBER":   ErrCodeInvalidDocNumber,
	"EMPTY_AUDIT_DATA":     ErrCodeEmptyAuditData,
}

// NormalizeErrorCode converts a domain error code to the API format
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
