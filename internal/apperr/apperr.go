// Package apperr defines the error kinds services return and handlers map
// to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Message: "Validation failed", Fields: map[string]string{field: msg}}
}

func InvalidFields(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "Validation failed", Fields: fields}
}

// BadRequest is a validation error without field detail.
func BadRequest(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// Error is a kind error with a message safe to show clients. Error()
// keeps the kind suffix for logs; Message returns the public text alone.
type Error struct {
	kind    error
	detail  string
	message string
}

func (e *Error) Error() string {
	return e.detail + ": " + e.kind.Error()
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Message returns the client-facing text of the first *Error in err's
// chain, or "" when there is none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.message
	}
	return ""
}

func NotFound(what string) error {
	return &Error{kind: ErrNotFound, detail: what, message: what + " not found"}
}

func Forbidden(reason string) error {
	return &Error{kind: ErrForbidden, detail: reason, message: reason}
}

func Conflict(reason string) error {
	return &Error{kind: ErrConflict, detail: reason, message: reason}
}
