// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"

	"cashpos/internal/apperror"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps per-field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}

// Status maps a domain error to its HTTP status. Anything untyped is a 500.
func Status(err error) int {
	switch {
	case apperror.IsValidation(err):
		return http.StatusUnprocessableEntity
	case apperror.IsState(err), apperror.IsConflict(err):
		return http.StatusConflict
	case apperror.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// From builds the response body for err. Validation errors carry their field;
// 500s get a generic message.
func From(err error) any {
	var ve *apperror.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		return &ValidationError{Detail: ve.Msg, Fields: map[string]string{ve.Field: ve.Msg}}
	}
	if Status(err) == http.StatusInternalServerError {
		return New("internal server error")
	}
	return New(err.Error())
}
