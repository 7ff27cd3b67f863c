package types

import (
	"errors"
	"fmt"
)

// Kind tags an Error with a stable category so HTTP handlers and the
// subscription hub can map it to a transport-specific response without
// string matching.
type Kind string

const (
	KindUnauthenticated       Kind = "unauthenticated"
	KindUnauthorized          Kind = "unauthorized"
	KindRateLimited           Kind = "rate_limited"
	KindInvalidInput          Kind = "invalid_input"
	KindInvalidGeometry       Kind = "invalid_geometry"
	KindConsentRequired       Kind = "consent_required"
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindInternal              Kind = "internal"
)

// Error is the tagged error every component in this module returns for
// caller-visible failures. Internal-only failures (programmer errors,
// unreachable branches) still use plain errors.New / fmt.Errorf.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfterSeconds is set by RateLimited errors so callers can surface
	// a concrete backoff hint.
	RetryAfterSeconds float64
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func RateLimitedError(retryAfterSeconds float64) *Error {
	return &Error{
		Kind:              KindRateLimited,
		Message:           "rate limit exceeded",
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, defaulting
// to KindInternal for anything else so handlers never have to special-case
// unexpected errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
