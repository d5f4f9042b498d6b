package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types used across the application
var (
	ErrValidation      = new(ErrCodeValidation, "validation error")
	ErrUnauthorized    = new(ErrCodeUnauthorized, "unauthorized")
	ErrNotFound        = new(ErrCodeNotFound, "resource not found")
	ErrPayloadTooLarge = new(ErrCodePayloadTooLarge, "payload too large")
	ErrRateLimited     = new(ErrCodeRateLimited, "too many requests")
	ErrConfiguration   = new(ErrCodeConfiguration, "server configuration error")
	ErrDatabase        = new(ErrCodeDatabase, "database error")
	ErrSystem          = new(ErrCodeSystemError, "system error")
	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrValidation:      http.StatusBadRequest,
		ErrUnauthorized:    http.StatusUnauthorized,
		ErrNotFound:        http.StatusNotFound,
		ErrPayloadTooLarge: http.StatusRequestEntityTooLarge,
		ErrRateLimited:     http.StatusTooManyRequests,
		ErrConfiguration:   http.StatusInternalServerError,
		ErrDatabase:        http.StatusInternalServerError,
		ErrSystem:          http.StatusInternalServerError,
	}
)

const (
	ErrCodeValidation      = "validation_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeNotFound        = "not_found"
	ErrCodePayloadTooLarge = "payload_too_large"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeConfiguration   = "configuration_error"
	ErrCodeDatabase        = "database_error"
	ErrCodeSystemError     = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnauthorized checks if an error is an authentication error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsConfiguration checks if an error is a server configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// HTTPStatusFromErr maps a marked error to its HTTP status. Unmarked errors are 500.
func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// CodeFromErr returns the machine-readable code of the sentinel err is marked with.
func CodeFromErr(err error) string {
	for e := range statusCodeMap {
		if errors.Is(err, e) {
			return e.(*InternalError).Code
		}
	}
	return ErrCodeSystemError
}
