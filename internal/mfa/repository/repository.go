// Package repository persists MFA methods and recovery codes.
package repository

import (
	"context"
	"time"

	"identity-plane/internal/mfa/domain"
)

// Repository stores enrolled factors and recovery codes. Lookups return
// (nil, nil) for missing rows.
type Repository interface {
	CreateMethod(ctx context.Context, m *domain.Method) error
	GetMethod(ctx context.Context, userID string, kind domain.Kind) (*domain.Method, error)
	ListMethods(ctx context.Context, userID string) ([]*domain.Method, error)
	DeleteMethod(ctx context.Context, id string) error
	// SetPreferred atomically makes the given method the user's only preferred
	// one.
	SetPreferred(ctx context.Context, userID, methodID string) error
	// SetOTP stores the digest and expiry of a freshly issued email OTP,
	// replacing any outstanding one.
	SetOTP(ctx context.Context, methodID, digest string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, methodID string) error
	TouchLastUsed(ctx context.Context, methodID string, at time.Time) error

	AddRecoveryCodes(ctx context.Context, codes []*domain.RecoveryCode) error
	DeleteRecoveryCodes(ctx context.Context, userID string) error
	// ConsumeRecoveryCode deletes the user's code matching digest and reports
	// whether a row was removed. Single-statement delete, so of any number of
	// concurrent presentations of the same code exactly one succeeds.
	ConsumeRecoveryCode(ctx context.Context, userID, digest string) (bool, error)
}
