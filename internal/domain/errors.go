// Package domain defines the entities, enumerations, ports and errors shared
// by the Automation Hub client packages.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by operations that need a session when
// none is present.
var ErrNotAuthenticated = errors.New("not authenticated")

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// AuthenticationError is a rejected login. It is shown next to the login
// form and never leaves the session store.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Unwrap() error { return e.Err }

// SessionExpiredError reports that a previously valid token was rejected.
// It is the only error class that escalates to a process-wide logout.
type SessionExpiredError struct {
	Message string
}

func (e *SessionExpiredError) Error() string { return e.Message }

// MutationError wraps a rejected create, update or delete. Cached state is
// left untouched when one is returned.
type MutationError struct {
	Op       string // "create", "update" or "delete"
	Resource string
	ID       int64
	Err      error
}

func (e *MutationError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Message returns the text meant for the control that triggered the
// mutation. It prefers the server's own detail when one was provided.
func (e *MutationError) Message() string {
	var d interface{ Detail() string }
	if errors.As(e.Err, &d) && d.Detail() != "" {
		return d.Detail()
	}
	return e.Err.Error()
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrSessionExpired creates a SessionExpiredError with a formatted message.
func ErrSessionExpired(format string, args ...interface{}) *SessionExpiredError {
	return &SessionExpiredError{Message: fmt.Sprintf(format, args...)}
}
