package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := New(KindExpired, "invitation past expiry")
	if !errors.Is(err, New(KindExpired, "anything")) {
		t.Error("errors.Is should match faults of the same kind")
	}
	if errors.Is(err, New(KindNotFound, "anything")) {
		t.Error("errors.Is should not match faults of different kinds")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := New(KindRateLimited, "too many attempts")
	wrapped := fmt.Errorf("login: %w", inner)
	if got := KindOf(wrapped); got != KindRateLimited {
		t.Errorf("KindOf = %q, want %q", got, KindRateLimited)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf plain error: want empty kind")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(KindUnavailable, "db", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, "db", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped fault should unwrap to its cause")
	}
	if !IsKind(err, KindUnavailable) {
		t.Error("IsKind should report the wrapping kind")
	}
}
