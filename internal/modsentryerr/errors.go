// Package modsentryerr implements the error taxonomy from spec §7:
// every failure the engine can produce is one of a small closed set of
// kinds, so the orchestrator and stream processor can dispatch on kind
// rather than inspecting error strings.
package modsentryerr

import (
	"errors"
	"fmt"
)

// Kind is one of the four error categories the engine recognizes.
type Kind string

const (
	// InputInvalid: malformed record, missing required field. The
	// record is sent to the dead-letter sink.
	InputInvalid Kind = "input_invalid"
	// ScorerUnavailable: text/image scorer failed or timed out. The
	// orchestrator falls back to a triage-only result.
	ScorerUnavailable Kind = "scorer_unavailable"
	// StateUnavailable: state backend read/write failed. Fatal for the
	// current message; Flow B still counts the message.
	StateUnavailable Kind = "state_unavailable"
	// Internal: uncaught defect. Always fatal, sent to dead-letter.
	Internal Kind = "internal"
)

// Error wraps an underlying cause with one of the four kinds.
type Error struct {
	Kind    Kind
	Op      string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause as a modsentryerr.Error of the given kind, attributed
// to op (the operation that detected the failure).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// Is reports whether err is a modsentryerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal when err is
// not one of ours — an uncaught defect is exactly what Internal means.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
