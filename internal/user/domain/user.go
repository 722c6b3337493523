package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the core principal entity. A user has one or more emails (exactly
// one primary), an append-only password history, and an active flag toggled
// by tenant domain-enforcement policy or self-deletion.
type User struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the user for persistence.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	return nil
}

// Email belongs to exactly one user. At most one email per user carries
// IsPrimary at any time; the repository enforces the flip transactionally.
// The OTP fields hold a hashed one-time code used for email verification.
type Email struct {
	ID           string
	UserID       string
	Address      string
	IsPrimary    bool
	VerifiedAt   *time.Time
	OTPDigest    string
	OTPExpiresAt *time.Time
	CreatedAt    time.Time
}

// Verified reports whether the email has been verified.
func (e *Email) Verified() bool { return e.VerifiedAt != nil }

// Domain returns the part after '@', lowercased, or "" for malformed addresses.
func (e *Email) Domain() string {
	at := strings.LastIndex(e.Address, "@")
	if at < 0 || at == len(e.Address)-1 {
		return ""
	}
	return strings.ToLower(e.Address[at+1:])
}

// Validate validates the email for persistence.
func (e *Email) Validate() error {
	if e.UserID == "" {
		return errors.New("user id is required")
	}
	if e.Address == "" {
		return errors.New("address is required")
	}
	if !strings.Contains(e.Address, "@") {
		return errors.New("invalid email address")
	}
	return nil
}

// Password is one entry of the append-only password history. The newest row
// is authoritative; older rows remain for reuse checks and audit.
type Password struct {
	ID        string
	UserID    string
	Digest    string
	CreatedAt time.Time
}
