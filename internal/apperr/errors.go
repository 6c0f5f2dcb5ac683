package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure the client caused.
type Kind int

const (
	// KindInternal covers anything that is not a client mistake
	// (storage failures, encoding bugs). It maps to 500.
	KindInternal Kind = iota
	// KindInput means the request named something that does not exist
	// or carried a value outside its allowed range.
	KindInput
	// KindAccess means the caller is known but not allowed to do this,
	// or the caller's token could not be resolved at all.
	KindAccess
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input_error"
	case KindAccess:
		return "access_error"
	default:
		return "internal_error"
	}
}

// Error is the only error type handlers translate into a 4xx response.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Input builds a KindInput error.
func Input(format string, args ...any) error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

// Access builds a KindAccess error.
func Access(format string, args ...any) error {
	return &Error{Kind: KindAccess, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err. Errors not produced by this package,
// including nil, are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps err onto the status code the API returns for it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInput:
		return http.StatusBadRequest
	case KindAccess:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
