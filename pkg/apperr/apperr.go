// Package apperr holds the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSecurityViolation = errors.New("security violation")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrProvider          = errors.New("provider error")
)

func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return wrap(ErrUnauthorized, format, args...)
}

func SecurityViolation(format string, args ...any) error {
	return wrap(ErrSecurityViolation, format, args...)
}

func QuotaExceeded(format string, args ...any) error {
	return wrap(ErrQuotaExceeded, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

// Provider wraps an adapter failure; cause may be nil.
func Provider(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrProvider, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrProvider, msg, cause)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
