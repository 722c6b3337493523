package domain

import "time"

// Type classifies a bearer token.
type Type string

const (
	// TypeLogin is a fully authenticated session token.
	TypeLogin Type = "login"
	// TypeMFA is an intermediate token issued after credential verification
	// when a second factor is still outstanding. It is valid only for the
	// MFA-verification operation and is either promoted to login in place or
	// expires.
	TypeMFA Type = "mfa"
	// TypeAPI is a delegated token with an explicit permission set. Unaffected
	// by logout-all.
	TypeAPI Type = "api"
)

// WildcardPermission grants an api token every scope.
const WildcardPermission = "*"

// AccessToken is a bearer credential. Only the SHA-256 digest of the secret
// is stored; the plaintext `<id>.<secret>` form is returned once at issuance.
type AccessToken struct {
	ID           string
	UserID       string
	Type         Type
	SecretDigest string
	// Permissions is the scope set for api tokens; ignored for other types.
	Permissions []string
	ExpiresAt   *time.Time
	LastUsedAt  *time.Time
	// LoginAttemptID references the audit record that produced the token.
	LoginAttemptID string
	CreatedAt      time.Time
}

// Expired reports whether the token is past its expiry at now. Expiry is
// lazy: expired rows are rejected at classification time, not swept.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Grants reports whether an api token's permission set covers scope.
func (t *AccessToken) Grants(scope string) bool {
	for _, p := range t.Permissions {
		if p == WildcardPermission || p == scope {
			return true
		}
	}
	return false
}
