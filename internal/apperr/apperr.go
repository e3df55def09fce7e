// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apperr classifies domain errors into the kinds the HTTP boundary reports.
package apperr

import "errors"

// Kind is the client-visible class of an error.
type Kind int

const (
	Internal Kind = iota
	Validation
	Authentication
	Authorization
	NotFound
	Conflict
	RateOrTTL
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Authorization:
		return "authorization"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case RateOrTTL:
		return "rate_or_ttl"
	default:
		return "internal"
	}
}

// Error is a classified error with a stable machine-readable code.
// Message is the English fallback; translations are keyed by "error_" + Code.
type Error struct {
	Err     error
	Code    string
	Message string
	Kind    Kind
}

// New returns a sentinel error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind and code, so wrapped copies of a
// sentinel compare equal to it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// Wrap attaches a cause to a sentinel while keeping its kind and code.
func Wrap(sentinel *Error, cause error) error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, Err: cause}
}

// KindOf returns the kind of err, or Internal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// CodeOf returns the stable code of err, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// MessageOf returns the fallback message of err, hiding unclassified details.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
