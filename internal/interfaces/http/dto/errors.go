package dto

import "net/http"

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeValidation   = "ERR_VALIDATION"
)

// Resource error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
)

// Domain error codes surfaced by the rule engine
const (
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeSchemaInvalid        = "SCHEMA_INVALID"
	ErrCodeUnresolvedReference  = "UNRESOLVED_REFERENCE"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,

	ErrCodeInvalidState:         http.StatusConflict,
	ErrCodeSchemaInvalid:        http.StatusUnprocessableEntity,
	ErrCodeUnresolvedReference:  http.StatusUnprocessableEntity,
	ErrCodeMissingRequiredField: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting
// to 500 for unmapped codes.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
