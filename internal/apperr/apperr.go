// Package apperr carries the typed errors the service surfaces to callers:
// not-found, forbidden, field-level validation and internal failures. Handlers
// map them to HTTP statuses; nothing below the handlers knows about HTTP.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindUnauthorized
)

// Error is an application error with a user-facing message and an optional
// wrapped cause for errors.Is / errors.As.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func Internalf(format string, args ...any) *Error {
	return New(KindInternal, fmt.Sprintf(format, args...))
}

// KindOf extracts the kind of err, defaulting to internal for plain errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FieldMessage is one field-level validation failure.
type FieldMessage struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level failures for one request.
type ValidationError struct {
	Messages []FieldMessage `json:"messages"`
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("%s: %s", e.Messages[0].Path, e.Messages[0].Message)
}

// AddField appends a failure and returns the error for chaining.
func (e *ValidationError) AddField(path, message string) *ValidationError {
	e.Messages = append(e.Messages, FieldMessage{Path: path, Message: message})
	return e
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool { return len(e.Messages) > 0 }

func NewValidation() *ValidationError { return &ValidationError{} }
