// Package repository persists per-tenant auth settings.
package repository

import (
	"context"

	"identity-plane/internal/authsettings/domain"
)

// Repository stores tenant auth settings, one row per tenant. Get returns
// (nil, nil) when the tenant has none.
type Repository interface {
	Upsert(ctx context.Context, s *domain.Settings) error
	Get(ctx context.Context, tenantID string) (*domain.Settings, error)
	Delete(ctx context.Context, tenantID string) error
}
