// Package fault defines the error taxonomy shared by all services. Expected
// outcomes (wrong credentials, expired tokens, policy violations) are returned
// as *Error values tagged with a Kind; callers branch on the kind via
// errors.Is against the package sentinels or KindOf. Only infrastructure
// failures (storage, DNS resolver) flow through untyped.
package fault

import (
	"errors"
	"fmt"
)

// Kind categorizes an expected, recoverable failure.
type Kind string

const (
	// KindInvalidCredential covers wrong passwords, OTPs, recovery codes, and
	// unparseable or unknown bearer tokens. Never distinguishes which field
	// was wrong.
	KindInvalidCredential Kind = "invalid_credential"
	// KindExpired covers tokens, OTPs, and invitations past their validity window.
	KindExpired Kind = "expired"
	// KindMFARequired means the token is valid but not fully authenticated.
	KindMFARequired Kind = "mfa_required"
	// KindAlreadyConfigured is an idempotent no-op condition (e.g. enrolling an
	// MFA method twice), not a hard failure.
	KindAlreadyConfigured Kind = "already_configured"
	// KindAlreadyExists is returned when a uniqueness constraint would be
	// violated (duplicate email, duplicate join request).
	KindAlreadyExists Kind = "already_exists"
	// KindPermissionDenied covers scope, role, and domain-enforcement violations.
	KindPermissionDenied Kind = "permission_denied"
	// KindNotFound means a referenced entity is absent.
	KindNotFound Kind = "not_found"
	// KindConflict means an invariant would be violated (e.g. deleting the
	// last domain of a tenant).
	KindConflict Kind = "conflict"
	// KindRateLimited is surfaced by the rate-limit collaborator; distinct
	// from invalid credentials.
	KindRateLimited Kind = "rate_limited"
	// KindUnavailable wraps infrastructure failures that callers may retry.
	KindUnavailable Kind = "unavailable"
)

// Error is a kinded error. Two *Error values match under errors.Is when their
// kinds are equal, so services can export sentinel instances.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, fault.New(KindExpired, ...))
// matches any expired fault regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New returns a fault with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns a fault with the given kind wrapping err. Returns nil if err is nil.
func Wrap(kind Kind, message string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err if it is (or wraps) a fault, or "" otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
