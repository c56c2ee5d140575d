package models

import (
	"errors"
	"fmt"
)

// ErrorMessageResponse is the body written by config.ErrorStatus
type ErrorMessageResponse struct {
	Response string   `json:"response"`
	Field    string   `json:"field,omitempty"`
	Details  []string `json:"details,omitempty"`
}

// HealthCheckResponse is the body of the /health route
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// Domain errors. Handlers map them onto HTTP status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRejectedTransition = errors.New("rejected transition")
	ErrGatewayFailure     = errors.New("classification gateway failure")
	ErrFatal              = errors.New("fatal")
)

// ValidationError is returned when a required field is missing or malformed.
// No state is changed when it is returned.
type ValidationError struct {
	Field   string
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is, or wraps, a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
