package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies an application error.
type ErrorCode int

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrUnauthorized
	ErrForbidden
	ErrConflict
	ErrCapacityExhausted
	ErrCapacityExceeded
	ErrInvalidTransition
	ErrInternal
)

// AppError represents an application error with optional field-level detail.
type AppError struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
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

// Is lets errors.Is match AppErrors by code.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

// ValidationFields builds a validation error carrying per-field detail.
func ValidationFields(fields map[string]string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// Conflict reports a concurrency conflict (lock timeout, unique violation)
// after local retries are exhausted.
func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

// CapacityExhausted means the identifier sequence has no values left and an
// operator must reconfigure the format.
func CapacityExhausted(err error) *AppError {
	return &AppError{
		Code:    ErrCapacityExhausted,
		Message: "no registration numbers left for the configured format",
		Err:     err,
	}
}

// CapacityExceeded means a candidate format cannot represent data already
// in use.
func CapacityExceeded(err error) *AppError {
	return &AppError{
		Code:    ErrCapacityExceeded,
		Message: "format cannot represent existing registration numbers",
		Err:     err,
	}
}

// InvalidTransition reports a disallowed visit status change along with the
// states from which the attempted action is legal.
func InvalidTransition(action string, allowed []string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("visit must be in one of the following states: %s", strings.Join(allowed, ", ")),
		Fields:  map[string]string{"action": action},
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// CodeOf extracts the application error code, defaulting to ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
