package domain

import "time"

// Kind identifies a second-factor method.
type Kind string

const (
	// KindAuthenticator is a TOTP app factor backed by an encrypted seed.
	KindAuthenticator Kind = "authenticator"
	// KindEmail delivers a short-lived numeric OTP to the account's primary
	// email address. Requires no stored secret.
	KindEmail Kind = "email"
)

// KindRecovery is accepted by verification as a pseudo-method: it consumes a
// single-use recovery code instead of exercising an enrolled factor. It is
// never stored as a method row.
const KindRecovery Kind = "recovery"

// Method is one enrolled second factor. A user holds at most one method per
// kind and at most one preferred method.
type Method struct {
	ID     string
	UserID string
	Kind   Kind
	// Preferred marks the factor the login flow should prompt first.
	Preferred bool
	// SecretEnc is the AES-GCM encrypted TOTP seed; empty for email methods.
	SecretEnc string
	// OTPDigest holds the SHA-256 digest of the outstanding email OTP, with
	// OTPExpiresAt bounding its validity. Cleared on successful verification.
	OTPDigest    string
	OTPExpiresAt *time.Time
	LastUsedAt   *time.Time
	CreatedAt    time.Time
}

// OTPExpired reports whether the outstanding email OTP is past its window.
func (m *Method) OTPExpired(now time.Time) bool {
	return m.OTPExpiresAt != nil && !now.Before(*m.OTPExpiresAt)
}

// RecoveryCode is one single-use backup code, stored as a digest of its
// normalized form.
type RecoveryCode struct {
	ID        string
	UserID    string
	Digest    string
	CreatedAt time.Time
}
