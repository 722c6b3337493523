// Package repository persists access tokens.
package repository

import (
	"context"
	"time"

	"identity-plane/internal/token/domain"
)

// Repository stores access tokens. Lookups return (nil, nil) for missing rows.
type Repository interface {
	Create(ctx context.Context, t *domain.AccessToken) error
	GetByID(ctx context.Context, id string) (*domain.AccessToken, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.AccessToken, error)
	// UpdateLastUsed records classification time; best-effort from callers.
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
	// Promote atomically mutates an mfa token to login type in place and
	// extends its expiry to expiresAt. Returns false when the token does not
	// exist or is not mfa-typed anymore, so exactly one of two concurrent
	// promotions can win.
	Promote(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	// Delete removes one token. Deleting an absent token is a no-op.
	Delete(ctx context.Context, id string) error
	// DeleteByUserAndType removes all of the user's tokens of the given type.
	DeleteByUserAndType(ctx context.Context, userID string, typ domain.Type) error
}
