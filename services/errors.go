package services

import (
	"errors"
	"fmt"

	"github.com/cppla/threadbbs/repository"
)

// Kind classifies a service failure. Every kind except Unavailable is terminal.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidArgument
	KindDepthExceeded
	KindRateLimitExceeded
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidArgument:
		return "invalid argument"
	case KindDepthExceeded:
		return "depth exceeded"
	case KindRateLimitExceeded:
		return "rate limit exceeded"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is returned by every service operation that fails.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrDepthExceeded     = &Error{Kind: KindDepthExceeded}
	ErrRateLimitExceeded = &Error{Kind: KindRateLimitExceeded}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
)

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, KindUnknown when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// storeError maps a repository failure onto the service taxonomy.
// notFoundMsg is used when the row is missing.
func storeError(op string, err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindNotFound, Msg: notFoundMsg}
	}
	return &Error{Kind: KindUnavailable, Msg: op, Err: err}
}
