// Package herr defines the closed set of error kinds the core reports to
// its caller, per the "Error taxonomy (kinds, not types)" in the design.
package herr

import "fmt"

// Kind is one of the six error kinds the core can produce. It is a closed
// set: callers should be able to switch over it exhaustively.
type Kind int

const (
	// IoError wraps any filesystem/SSH failure surfaced through a FileSystem.
	IoError Kind = iota
	// ParseError means a header was present but malformed; the caller falls
	// back to Header.None and reports this as Info, not Error.
	ParseError
	// AssembleError means the Encoder rejected the user's assembly source.
	AssembleError
	// OutOfBounds is a programmatic precondition violation (e.g. a byte
	// index past end of file after the caller should already have clamped).
	OutOfBounds
	// UnknownVirtualAddress means jump_to(va) found no covering section.
	UnknownVirtualAddress
	// FuzzyMissing means a symbol/command search produced no results.
	FuzzyMissing
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "IoError"
	case ParseError:
		return "ParseError"
	case AssembleError:
		return "AssembleError"
	case OutOfBounds:
		return "OutOfBounds"
	case UnknownVirtualAddress:
		return "UnknownVirtualAddress"
	case FuzzyMissing:
		return "FuzzyMissing"
	default:
		return "UnknownKind"
	}
}

// Error is the concrete error type every core operation returns. It carries
// a Kind so callers can branch on taxonomy without parsing the message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Is reports whether err is an *Error of the given Kind, looking through
// Unwrap the way errors.Is does for sentinel comparisons.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
