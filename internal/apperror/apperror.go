// Package apperror defines the typed failures returned by the domain layer.
// Handlers translate them to HTTP statuses through apierror.Status; domain code
// never returns bare strings for business rule violations.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input: negative amounts,
// unknown denominations, missing mode tags, names that are too long.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// StateError reports an operation that is not valid in the register's current
// session state (opening an open register, closing a closed one, ...).
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return e.Msg }

// NotFoundError reports an unknown register or session id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports a write that would destroy history, such as removing a
// register that already has sessions.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func State(msg string) error { return &StateError{Msg: msg} }

func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsState(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}
