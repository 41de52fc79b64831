// Package svcerr carries the service layer's error taxonomy. Services raise
// a kind at the point of detection; the HTTP layer maps kinds to status
// codes, keeping business logic transport-agnostic.
package svcerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindNotFound
	KindAlreadyExists
	KindNotEligible
	KindConsentRequired
	KindInvalidOperation
	KindNotMatched
	KindDataIntegrity
)

// Code returns the stable machine-readable code for a kind.
func (k Kind) Code() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotEligible:
		return "not_eligible"
	case KindConsentRequired:
		return "consent_required"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindNotMatched:
		return "not_matched"
	case KindDataIntegrity:
		return "data_integrity"
	default:
		return "internal"
	}
}

// Error pairs a kind with a human-readable detail and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from an error chain; unknown errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf returns the service-provided detail, or a generic fallback for
// errors outside the taxonomy so internals never leak to clients.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "internal error"
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func InvalidInput(msg string) *Error     { return newError(KindInvalidInput, msg) }
func Unauthorized(msg string) *Error     { return newError(KindUnauthorized, msg) }
func NotFound(msg string) *Error         { return newError(KindNotFound, msg) }
func AlreadyExists(msg string) *Error    { return newError(KindAlreadyExists, msg) }
func NotEligible(msg string) *Error      { return newError(KindNotEligible, msg) }
func ConsentRequired(msg string) *Error  { return newError(KindConsentRequired, msg) }
func InvalidOperation(msg string) *Error { return newError(KindInvalidOperation, msg) }
func NotMatched(msg string) *Error       { return newError(KindNotMatched, msg) }

// DataIntegrity marks a fatal invariant violation, e.g. a match referencing
// a user that cannot be resolved. Not user-correctable.
func DataIntegrity(msg string, cause error) *Error {
	return &Error{Kind: KindDataIntegrity, Message: msg, Err: cause}
}

// Internal wraps an unexpected infrastructure failure.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}
