// Package repository persists login attempts.
package repository

import (
	"context"

	"identity-plane/internal/audit/domain"
)

// Repository stores login attempts. Attempts are append-only.
type Repository interface {
	Create(ctx context.Context, a *domain.LoginAttempt) error
	// ListByUser returns attempts for the user, newest first, up to limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.LoginAttempt, error)
}
