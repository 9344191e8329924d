// Package apperr classifies every failure the backend can surface.
// Callers match on the sentinel kinds with errors.Is; the HTTP layer
// maps each kind to exactly one status code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers missing or invalid startup parameters. Fatal.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication covers failed identity resolution. The session stays
	// unauthenticated and no store or feed call may proceed.
	ErrAuthentication = errors.New("authentication error")

	// ErrWrite covers a mutation that failed against the store backend.
	// Reported to the caller, never retried automatically.
	ErrWrite = errors.New("write error")

	// ErrFeed covers a subscription that failed or was lost.
	ErrFeed = errors.New("feed error")

	// ErrNotFound covers a mutation whose target record no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrAuthorization covers a mutation rejected because the caller does
	// not own the target record.
	ErrAuthorization = errors.New("not authorized")
)

// Error ties a message to one of the sentinel kinds.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Configurationf(format string, args ...any) error {
	return newf(ErrConfiguration, format, args...)
}

func Authenticationf(format string, args ...any) error {
	return newf(ErrAuthentication, format, args...)
}

func Writef(format string, args ...any) error {
	return newf(ErrWrite, format, args...)
}

func Feedf(format string, args ...any) error {
	return newf(ErrFeed, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newf(ErrNotFound, format, args...)
}

func Authorizationf(format string, args ...any) error {
	return newf(ErrAuthorization, format, args...)
}
