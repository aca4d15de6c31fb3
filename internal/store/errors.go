package store

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies remote store failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermissionDenied
	KindNotFound
	KindUnauthenticated
	KindConflict
	KindUnavailable
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission-denied"
	case KindNotFound:
		return "not-found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidArgument:
		return "invalid-argument"
	default:
		return "unknown"
	}
}

var (
	ErrPermissionDenied = errors.New("missing or insufficient permissions")
	ErrNotFound         = errors.New("document does not exist")
	ErrUnauthenticated  = errors.New("sign in required")
	ErrConflict         = errors.New("document was modified concurrently")
	ErrUnavailable      = errors.New("remote store unavailable")
	ErrInvalidArgument  = errors.New("invalid argument")
)

var kindSentinels = map[Kind]error{
	KindPermissionDenied: ErrPermissionDenied,
	KindNotFound:         ErrNotFound,
	KindUnauthenticated:  ErrUnauthenticated,
	KindConflict:         ErrConflict,
	KindUnavailable:      ErrUnavailable,
	KindInvalidArgument:  ErrInvalidArgument,
}

// Error is a normalized remote store failure.
type Error struct {
	Kind       Kind
	Op         string
	Collection string
	ID         string
	Err        error
}

// Sentinel returns the sentinel error of kind, or nil for KindUnknown.
func Sentinel(kind Kind) error {
	return kindSentinels[kind]
}

// NewError builds an Error. A nil err is replaced by the sentinel of the kind.
func NewError(kind Kind, op, collection, id string, err error) *Error {
	if err == nil {
		err = kindSentinels[kind]
		if err == nil {
			err = errors.New("unknown error")
		}
	}
	return &Error{Kind: kind, Op: op, Collection: collection, ID: id, Err: err}
}

func (e *Error) Error() string {
	target := e.Collection
	if e.ID != "" {
		target = fmt.Sprintf("%s/%s", e.Collection, e.ID)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, target, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the kind of a store error, or KindUnknown for anything else.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// IsRetryable reports whether err looks transient. Only unavailable and
// unknown store failures qualify; cancellation never does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == KindUnavailable || se.Kind == KindUnknown
}
