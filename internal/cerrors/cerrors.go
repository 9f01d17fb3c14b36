// Package cerrors implements the typed error taxonomy of the CPSTO error
// handling design: every activity-surfaced failure carries a Kind that
// the Durable Workflow Engine Adapter's retry policy keys on, instead of
// classifying errors by string-matching messages the way the teacher's
// errGroupNotFound string check does for GitLab 404s.
package cerrors

import "github.com/pkg/errors"

// Kind classifies an error for retry-policy purposes.
type Kind string

const (
	KindValidation        Kind = "Validation"
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindDependencyCycle   Kind = "DependencyCycle"
	KindNoMatchingVersion Kind = "NoMatchingVersion"
	KindUnknownSlug       Kind = "UnknownSlug"
	KindUnknownTag        Kind = "UnknownTag"
	KindProviderTransient Kind = "ProviderTransient"
	KindProviderAuth      Kind = "ProviderAuth"
	KindIntegrity         Kind = "Integrity"
	KindTimeoutExceeded   Kind = "TimeoutExceeded"
	KindCancelRequested   Kind = "CancelRequested"
)

// nonRetryable holds the default retryability for each Kind per spec.md
// §7. ProviderTransient is the only retryable kind by default; NotFound
// is retryable only when the caller explicitly constructs it that way
// (transient provider lookup), so it is listed here as non-retryable —
// New/Wrap leave NotFound non-retryable unless NewTransientNotFound is used.
var nonRetryable = map[Kind]bool{
	KindValidation:        true,
	KindNotFound:          true,
	KindConflict:          true,
	KindDependencyCycle:   true,
	KindNoMatchingVersion: true,
	KindUnknownSlug:       true,
	KindUnknownTag:        true,
	KindProviderTransient: false,
	KindProviderAuth:      true,
	KindIntegrity:         true,
	KindTimeoutExceeded:   true,
	KindCancelRequested:   true,
}

// Error is the typed error surfaced by activities, matching spec.md
// §7's {kind, message, details, non_retryable} shape.
type Error struct {
	Kind         Kind
	Message      string
	Details      map[string]any
	NonRetryable bool
	cause        error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an Error of the given kind with the package default
// retryability.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, NonRetryable: nonRetryable[kind]}
}

// Newf is New with Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: errors.Errorf(format, args...).Error(), NonRetryable: nonRetryable[kind]}
}

// Wrap attaches kind and default retryability to an underlying error,
// preserving it for errors.Unwrap/errors.Is/As the way errors.Wrap does
// for the teacher's plain error chains.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, NonRetryable: nonRetryable[kind], cause: err}
}

// NewTransientNotFound builds a NotFound error that is retryable — used
// for provider lookups that may simply not have propagated yet (spec.md
// §7: "retryable for transient provider lookup").
func NewTransientNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, NonRetryable: false}
}

// WithDetails attaches structured details and returns the same error for
// chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// IsRetryable reports whether err (or any Error in its chain) is
// retryable. A plain, non-cerrors error is treated as retryable by
// default so unexpected errors get the benefit of at-least-once retry
// rather than silently becoming permanent failures.
func IsRetryable(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return !ce.NonRetryable
	}
	return true
}

// KindOf extracts the Kind from err, returning ok=false if err does not
// wrap a *Error.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
