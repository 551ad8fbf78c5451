// Package apierror provides standardized error response structures for the API
// and the domain error taxonomy of the bar engine. Services return the errors
// declared here; handlers translate them with Respond so no internal detail
// (SQL errors, stack traces) ever reaches a client.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string         `json:"detail"`
	Code   string         `json:"code,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Erro de validação", Fields: fields}
}
