// Package errkind classifies errors raised across the indexing and query
// path into the kinds named in the system design (Io, Corrupt, Parse,
// Overflow, NotFound, Budget, Timeout, Arg), so callers can branch on
// errors.Is/errors.As instead of matching strings.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories produced by the math index.
type Kind string

const (
	Io       Kind = "io"
	Corrupt  Kind = "corrupt"
	Parse    Kind = "parse"
	Overflow Kind = "overflow"
	NotFound Kind = "not_found"
	Budget   Kind = "budget"
	Timeout  Kind = "timeout"
	Arg      Kind = "arg"
)

// Error wraps an underlying cause with a Kind, preserving %w unwrapping.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match err against another *Error carrying the same Kind,
// e.g. errors.Is(err, errkind.New(errkind.Overflow, "", nil)). The
// package-level Is tests against a bare Kind value.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an *Error for op, wrapping err (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Of reports the Kind carried by err, or "" if err does not carry one.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err (or anything it wraps) carries kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
