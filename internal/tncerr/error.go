// Package tncerr defines the error taxonomy shared across the commissioner
// core: the Registry, the Job Manager, the interpreter, and the discovery
// engine all report failures through a single Kind enum so callers can
// branch on failure class without string matching.
package tncerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into the categories the interpreter and job
// manager need to distinguish (e.g. a NotFound alias is reported differently
// than a Timeout waiting on a Session).
type Kind int

const (
	None Kind = iota
	InvalidArgs
	InvalidCommand
	InvalidState
	NotFound
	Ambiguity
	Restricted
	BadFormat
	IOError
	RegistryError
	Security
	Cancelled
	Timeout
	OutOfMemory
	Rejected
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case InvalidArgs:
		return "invalid_args"
	case InvalidCommand:
		return "invalid_command"
	case InvalidState:
		return "invalid_state"
	case NotFound:
		return "not_found"
	case Ambiguity:
		return "ambiguity"
	case Restricted:
		return "restricted"
	case BadFormat:
		return "bad_format"
	case IOError:
		return "io_error"
	case RegistryError:
		return "registry_error"
	case Security:
		return "security"
	case Cancelled:
		return "cancelled"
	case Timeout:
		return "timeout"
	case OutOfMemory:
		return "out_of_memory"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carried through the core. It wraps an
// optional underlying cause so callers can still unwrap to the original
// error (os.ErrNotExist, context.DeadlineExceeded, etc).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given Kind with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given Kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the Kind carried by err, or None if err is nil or not a
// *Error (and has no *Error in its chain).
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return None
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
