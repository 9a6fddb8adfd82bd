package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Rule engine error codes. Schema errors are raised at publish/load time
// only; request-time failures are limited to input validation.
const (
	CodeSchemaInvalid        = "SCHEMA_INVALID"
	CodeUnresolvedReference  = "UNRESOLVED_REFERENCE"
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeShadowFailure        = "SHADOW_FAILURE"
)

// NewSchemaError creates a schema validation error with a detail message
func NewSchemaError(message string) *DomainError {
	return NewDomainError(CodeSchemaInvalid, message)
}

// NewInputError creates a request-time input error
func NewInputError(message string) *DomainError {
	return NewDomainError(CodeMissingRequiredField, message)
}
