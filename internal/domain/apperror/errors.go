// Package apperror is the closed set of failure kinds that cross the
// ProfileStore and AvatarPipeline boundaries. Transport and backend errors are
// wrapped into one of these before they reach a caller.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: profile row absent. Recovered into a stub, never surfaced as failure.
	KindNotFound
	// KindPermissionDenied: terminal for the current attempt, user notified, no retry.
	KindPermissionDenied
	// KindUserCancelled: silent, no notification, no state change.
	KindUserCancelled
	// KindStore: network/backend failure. Operation abandoned, prior state retained.
	KindStore
	// KindPrecondition: no active session for an operation that needs one.
	KindPrecondition
	// KindInvalidImage: acquired asset could not be decoded for the square crop.
	KindInvalidImage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindUserCancelled:
		return "user_cancelled"
	case KindStore:
		return "store_error"
	case KindPrecondition:
		return "precondition_error"
	case KindInvalidImage:
		return "invalid_image"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus the operation that failed and the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrUserCancelled    = &Error{Kind: KindUserCancelled}
	ErrStore            = &Error{Kind: KindStore}
	ErrPrecondition     = &Error{Kind: KindPrecondition}
	ErrInvalidImage     = &Error{Kind: KindInvalidImage}
)

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Store(op string, err error) *Error { return New(KindStore, op, err) }

func Precondition(op string, err error) *Error { return New(KindPrecondition, op, err) }

// KindOf reports the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
