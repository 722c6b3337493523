package domain

import "time"

// Method names the credential presented in an authentication attempt.
type Method string

const (
	MethodPassword  Method = "password"
	MethodMagicLink Method = "magic_link"
	MethodExternal  Method = "external"
	MethodMFA       Method = "mfa"
	MethodToken     Method = "token"
)

// Fingerprint identifies the client that made an attempt.
type Fingerprint struct {
	Browser  string
	Platform string
	Device   string
	IP       string
}

// LoginAttempt is an immutable audit record of one authentication attempt,
// success or failure. Token issuance and promotion reference the attempt that
// produced them.
type LoginAttempt struct {
	ID          string
	UserID      string // empty when the principal could not be identified
	Email       string
	Method      Method
	Fingerprint Fingerprint
	Success     bool
	Suspicious  bool
	CreatedAt   time.Time
}
