// Package apperrors classifies the expected failures of rate resolution.
//
// A failure is one or more *Error values of the same Kind. Success is always
// the plain (value, nil) pair; a failure without errors cannot be built.
package apperrors

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/multierr"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindDomain
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDomain:
		return "domain"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

var (
	// ErrValidation matches malformed input rejected before any I/O.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches unknown entities, e.g. an unsupported currency code.
	ErrNotFound = errors.New("entity not found")
	// ErrDomain matches business rule violations such as a negative rate.
	ErrDomain = errors.New("domain rule violated")
	// ErrUpstream matches failures reported by or while talking to the rate provider.
	ErrUpstream = errors.New("upstream failure")
	// ErrIntegrity is a store invariant violation. It is never an expected outcome.
	ErrIntegrity = errors.New("data integrity violation")
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
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

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindNotFound:
		return target == ErrNotFound
	case KindDomain:
		return target == ErrDomain
	case KindUpstream:
		return target == ErrUpstream
	}
	return false
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewNotFoundError(message string, cause error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: cause}
}

func NewDomainError(message string) *Error {
	return &Error{Kind: KindDomain, Message: message}
}

func NewUpstreamError(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: cause}
}

// Combine merges errs into a single failure. It panics when no non-nil error is
// given, since such a value would be a failure carrying nothing.
func Combine(errs ...error) error {
	err := multierr.Combine(errs...)
	if err == nil {
		panic("apperrors: Combine requires at least one error")
	}
	return err
}

// KindOf reports the kind shared by every error in err. ok is false when err
// contains an unclassified error; mixed is true when classified errors disagree.
func KindOf(err error) (kind Kind, mixed bool, ok bool) {
	for _, e := range multierr.Errors(err) {
		var ae *Error
		if !errors.As(e, &ae) {
			return 0, false, false
		}
		if kind != 0 && ae.Kind != kind {
			return 0, true, true
		}
		kind = ae.Kind
	}
	return kind, false, kind != 0
}

// Message renders err as the single user-facing message of a failure.
func Message(err error) string {
	var msgs []string
	for _, e := range multierr.Errors(err) {
		var ae *Error
		if errors.As(e, &ae) {
			msgs = append(msgs, ae.Message)
			continue
		}
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// IsCancelled reports whether err is a bare cancellation of the caller's
// context. Classified errors are never cancellations, even when their cause is
// an expired per-attempt deadline.
func IsCancelled(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
