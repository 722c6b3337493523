// Package repository persists users, emails, and password history.
package repository

import (
	"context"
	"time"

	"identity-plane/internal/user/domain"
)

// Repository stores principals and their emails and passwords.
//
// Lookup methods return (nil, nil) for missing rows; errors are reserved for
// storage failures.
type Repository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// SetActive flips the user's active flag.
	SetActive(ctx context.Context, id string, active bool) error

	AddEmail(ctx context.Context, e *domain.Email) error
	GetEmailByAddress(ctx context.Context, address string) (*domain.Email, error)
	ListEmails(ctx context.Context, userID string) ([]*domain.Email, error)
	// PrimaryEmail returns the user's primary email, or nil if the user has none.
	PrimaryEmail(ctx context.Context, userID string) (*domain.Email, error)
	// SetPrimaryEmail atomically unsets the current primary and sets emailID.
	// Two concurrent calls must not leave two primaries.
	SetPrimaryEmail(ctx context.Context, userID, emailID string) error
	// MarkEmailVerified sets verified_at if not already set.
	MarkEmailVerified(ctx context.Context, emailID string, at time.Time) error
	// SetEmailOTP stores the hashed one-time code and its expiry on the email.
	SetEmailOTP(ctx context.Context, emailID, digest string, expiresAt time.Time) error
	// ClearEmailOTP removes any stored one-time code.
	ClearEmailOTP(ctx context.Context, emailID string) error

	// AddPassword appends to the password history.
	AddPassword(ctx context.Context, p *domain.Password) error
	// LatestPassword returns the newest password entry, or nil if none.
	LatestPassword(ctx context.Context, userID string) (*domain.Password, error)
}
