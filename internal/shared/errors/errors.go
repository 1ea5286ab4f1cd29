package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds recognised by Classify
var (
	ErrValidation        = errors.New("validation error")
	ErrResourceExhausted = errors.New("resource exhausted")
)

const resourceExhaustedMessage = "Server resource limit exceeded"

// AppError represents an application error with context
type AppError struct {
	Err        error  `json:"-"`
	Message    string `json:"detail"`
	Code       string `json:"-"`
	HTTPStatus int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an AppError against the sentinel of its kind.
func (e *AppError) Is(target error) bool {
	switch e.Code {
	case "INVALID_INPUT":
		return target == ErrValidation
	case "RESOURCE_EXHAUSTED":
		return target == ErrResourceExhausted
	}
	return false
}

// Invalid creates a validation error. The reason is shown to the caller.
func Invalid(reason string) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %s", ErrValidation, reason),
		Message:    "Invalid input: " + reason,
		Code:       "INVALID_INPUT",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Invalidf formats a validation reason
func Invalidf(format string, args ...any) *AppError {
	return Invalid(fmt.Sprintf(format, args...))
}

// ResourceExhausted creates a capacity error. The cause is kept for logging
// only and never reaches the response body.
func ResourceExhausted(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    resourceExhaustedMessage,
		Code:       "RESOURCE_EXHAUSTED",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Unclassified creates a server error carrying the failure reason.
func Unclassified(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Error processing request: " + reason(err),
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Classify maps any error from the request path onto one of the three
// API outcomes.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrValidation):
		return &AppError{
			Err:        err,
			Message:    "Invalid input: " + reason(err),
			Code:       "INVALID_INPUT",
			HTTPStatus: http.StatusBadRequest,
		}
	case errors.Is(err, ErrResourceExhausted):
		return ResourceExhausted(err)
	default:
		return Unclassified(err)
	}
}

func reason(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
