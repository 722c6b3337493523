package domain

import (
	"fmt"
	"time"
)

// AgeState classifies how stale a password is under a rotation policy.
type AgeState int

const (
	// AgeOK means the password is within policy.
	AgeOK AgeState = iota
	// AgeWarn means the soft expiry has passed; login proceeds with a warning.
	AgeWarn
	// AgeBlock means the hard expiry has passed; login requires a password change.
	AgeBlock
)

// AgePolicy configures password rotation. A zero duration disables the
// corresponding threshold.
type AgePolicy struct {
	Soft time.Duration
	Hard time.Duration
}

// AgeResult is the outcome of EvaluatePasswordAge.
type AgeResult struct {
	State   AgeState
	Message string
}

// EvaluatePasswordAge is a pure function over (now, lastChange, policy). It
// holds no hidden state: the same inputs always produce the same result.
func EvaluatePasswordAge(now, lastChange time.Time, policy AgePolicy) AgeResult {
	if lastChange.IsZero() {
		return AgeResult{State: AgeOK}
	}
	age := now.Sub(lastChange)
	if policy.Hard > 0 && age >= policy.Hard {
		return AgeResult{
			State:   AgeBlock,
			Message: "password has expired and must be changed",
		}
	}
	if policy.Soft > 0 && age >= policy.Soft {
		days := int(age.Hours() / 24)
		return AgeResult{
			State:   AgeWarn,
			Message: fmt.Sprintf("password is %d days old and should be changed", days),
		}
	}
	return AgeResult{State: AgeOK}
}
