package apperror

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrBadRequest            = errors.New("bad request")
	ErrInternal              = errors.New("internal server error")
	ErrInvalidInput          = errors.New("invalid input")
	ErrValidation            = errors.New("validation failed")
	ErrInvalidState          = errors.New("invalid state transition")
	ErrConflict              = errors.New("conflict")
	ErrRetryLimitExceeded    = errors.New("retry limit exceeded")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict), errors.Is(err, ErrRetryLimitExceeded):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	}
	// Default to internal server error
	return http.StatusInternalServerError
}

// Kind returns a stable machine-readable name for the error family.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return "validation_error"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrRetryLimitExceeded):
		return "retry_limit_exceeded"
	case errors.Is(err, ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, ErrDependencyUnavailable):
		return "dependency_unavailable"
	}
	return "internal"
}

// FromStorage converts connectivity failures coming out of the store into
// ErrDependencyUnavailable. Other errors are returned untouched.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDependencyUnavailable) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return errors.Join(ErrDependencyUnavailable, err)
	}
	return err
}
