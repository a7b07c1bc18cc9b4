// Package errors provides coded application errors shared by the repository,
// service and transport layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies an application error.
type Code string

const (
	ErrCodeInternal      Code = "INTERNAL"
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeConfiguration Code = "CONFIGURATION"
	ErrCodeRemoteFetch   Code = "REMOTE_FETCH"
	ErrCodeUnavailable   Code = "UNAVAILABLE"
)

// AppError is an error carrying a Code and an optional cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
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

// New creates an AppError without a cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap annotates err with a code and message. Wrap returns nil for a nil err.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", resource, id))
}

// InvalidInput reports a rejected request field.
func InvalidInput(field, message string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, message))
}

// Configuration reports a load that cannot start because required
// configuration is missing.
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message)
}

// RemoteFetch wraps a failed call to a record source.
func RemoteFetch(err error, message string) error {
	return Wrap(err, ErrCodeRemoteFetch, message)
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// As is a passthrough to the standard library so callers need a single import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
