// Package apperr provides the structured error taxonomy shared by the
// storage, manager, and frontend layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so frontends can decide how to present it.
type Kind int

const (
	// KindUnknown is the zero value for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindValidation covers bad input shape, length, or enum values.
	KindValidation
	// KindAuth covers bad credentials and missing or expired sessions.
	KindAuth
	// KindPermission covers authenticated callers acting on tasks they
	// neither created nor are assigned to.
	KindPermission
	// KindNotFound covers references to absent rows.
	KindNotFound
	// KindStorage covers transaction and I/O failures, including lock
	// contention that survived the retry policy.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error carries a kind, a user-presentable message, and an optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Message returns the user-presentable message without the cause chain.
func (e *Error) Message() string {
	return e.Msg
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Auth(format string, args ...any) error {
	return &Error{Kind: KindAuth, Msg: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...any) error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a low-level database failure.
func Storage(cause error, format string, args ...any) error {
	return &Error{Kind: KindStorage, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of err, or KindUnknown if err is not from this
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
