// Package apperr defines the error kinds that cross the domain/transport
// boundary. Domain packages declare sentinels with New and the HTTP layer
// maps the Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	Forbidden
	Unauthorized
	Gone
	InvalidEntry
	BadRequest
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Unauthorized:
		return "unauthorized"
	case Gone:
		return "gone"
	case InvalidEntry:
		return "invalid_entry"
	case BadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Error is a classified, user-presentable failure.
// Fields is only populated for InvalidEntry.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}

// New returns a sentinel. Compare with errors.Is.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Field returns an InvalidEntry sentinel for a single field.
func Field(field, reason string) *Error {
	return &Error{Kind: InvalidEntry, Message: "Invalid Entry", Fields: map[string]string{field: reason}}
}

// Invalid aggregates per-field messages into one InvalidEntry error.
func Invalid(fields map[string]string) *Error {
	return &Error{Kind: InvalidEntry, Message: "Invalid Entry", Fields: fields}
}

// KindOf reports the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As unwraps the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
