package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can pick a retry policy without
// string-matching messages.
type ErrorKind int

const (
	// Transient covers HTTP 5xx, network resets and similar; retry with backoff.
	Transient ErrorKind = iota
	// NotYetAvailable is a 404 for a checkpoint the archive has not sealed yet.
	NotYetAvailable
	// FormatMismatch means a checkpoint or event payload failed to deserialize.
	FormatMismatch
	// Integrity means a decoded row violates an invariant (e.g. narrowing overflow).
	Integrity
	// Conflict is a unique-constraint violation on insert; ignored by design of
	// the idempotent bulk writer.
	Conflict
	// StoreUnavailable means the database cannot be reached.
	StoreUnavailable
	// PollFailure is an isolated per-pool simulation failure.
	PollFailure
	// Configuration means the process environment is missing or malformed.
	Configuration
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case NotYetAvailable:
		return "not_yet_available"
	case FormatMismatch:
		return "format_mismatch"
	case Integrity:
		return "integrity"
	case Conflict:
		return "conflict"
	case StoreUnavailable:
		return "store_unavailable"
	case PollFailure:
		return "poll_failure"
	case Configuration:
		return "configuration"
	}
	return "unknown"
}

// Error is the concrete error type carried across the ingestion core.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind. A nil err yields nil.
func NewError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err, defaulting to Transient for plain
// errors (unknown network-ish failures are retried, not fatal).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
