// Package apperr defines the error kinds of spec.md §7, in the same
// wrap-with-context style ssungk-SOL uses for pkg/mpegts.ParseError: a
// sentinel Kind, an Error() that reports it alongside the wrapped cause, and
// an Unwrap() so callers can still errors.Is/errors.As through to the
// underlying cause.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories from spec.md §7.
type Kind string

const (
	// SyncNotFound: TS sync pattern absent in the first ~9.5KiB and on
	// rescans through EOF. Fatal to the stream being parsed.
	SyncNotFound Kind = "sync_not_found"
	// BitrateIndeterminate: insufficient PCRs to compute bitrate. Fatal to
	// the stream being parsed.
	BitrateIndeterminate Kind = "bitrate_indeterminate"
	// IOFailure: file open/read, socket send, socket open. Stream-fatal.
	IOFailure Kind = "io_failure"
	// NotFound: delete_stream for an unknown id. Non-fatal to the system.
	NotFound Kind = "not_found"
	// BadRequest: malformed REST payload. Non-fatal.
	BadRequest Kind = "bad_request"
	// Internal: unexpected invariant violation. Non-fatal to the system;
	// the offending stream is terminated.
	Internal Kind = "internal"
)

// Error wraps a Kind with a message and an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error of the given kind with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates an *Error of the given kind wrapping err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// needed via errors.As.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
