package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a terminal pipeline failure so callers can alarm,
// retry, or drop each class differently.
type ErrorKind string

const (
	// ErrKindValidation - malformed or missing required input, rejected
	// before any upstream call. Never retried.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindNotFound - a referenced broadcast, user, or campaign does
	// not exist upstream. Terminal, not retried.
	ErrKindNotFound ErrorKind = "not_found"
	// ErrKindPolicy - classification refuses to proceed (legacy broadcast,
	// closed campaign, unsubscribed user). Distinct from NotFound.
	ErrKindPolicy ErrorKind = "policy"
	// ErrKindUpstream - transport/timeout/5xx from a collaborator.
	// Retry, if any, is the caller's responsibility.
	ErrKindUpstream ErrorKind = "upstream"
	// ErrKindPersistence - store read/write failure. Always terminal,
	// never silently ignored.
	ErrKindPersistence ErrorKind = "persistence"
)

// Error is a classified failure produced by a pipeline stage.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind onto a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case ErrKindValidation, ErrKindPolicy:
		return http.StatusUnprocessableEntity
	case ErrKindNotFound:
		return http.StatusNotFound
	case ErrKindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a Validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: ErrKindValidation, Message: message}
}

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(message string) *Error {
	return &Error{Kind: ErrKindNotFound, Message: message}
}

// NewPolicyError creates a Policy rejection.
func NewPolicyError(message string) *Error {
	return &Error{Kind: ErrKindPolicy, Message: message}
}

// NewUpstreamError wraps a collaborator failure.
func NewUpstreamError(message string, cause error) *Error {
	return &Error{Kind: ErrKindUpstream, Message: message, Err: cause}
}

// NewPersistenceError wraps a store failure.
func NewPersistenceError(message string, cause error) *Error {
	return &Error{Kind: ErrKindPersistence, Message: message, Err: cause}
}

// KindOf returns the classification of err, or ErrKindPersistence when
// the error carries no explicit class (an unclassified fault is treated
// as the most severe kind).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindPersistence
}

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool { return hasKind(err, ErrKindValidation) }

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return hasKind(err, ErrKindNotFound) }

// IsPolicy reports whether err is a Policy rejection.
func IsPolicy(err error) bool { return hasKind(err, ErrKindPolicy) }

// IsUpstream reports whether err is an Upstream failure.
func IsUpstream(err error) bool { return hasKind(err, ErrKindUpstream) }

// IsPersistence reports whether err is a Persistence failure.
func IsPersistence(err error) bool { return hasKind(err, ErrKindPersistence) }

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
