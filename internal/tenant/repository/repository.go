// Package repository persists tenants, their domains, and domain rules.
package repository

import (
	"context"
	"time"

	"identity-plane/internal/tenant/domain"
)

// Repository stores tenants and domains. Lookups return (nil, nil) for
// missing rows.
type Repository interface {
	CreateTenant(ctx context.Context, t *domain.Tenant) error
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	// SetTenantActivation sets or clears ActivatedAt; reason accompanies a
	// suspension and is cleared on activation.
	SetTenantActivation(ctx context.Context, id string, activatedAt *time.Time, reason string) error
	// TransferOwner reassigns the owning user.
	TransferOwner(ctx context.Context, id, newOwnerID string) error

	CreateDomain(ctx context.Context, d *domain.Domain) error
	GetDomain(ctx context.Context, id string) (*domain.Domain, error)
	GetDomainByName(ctx context.Context, name string) (*domain.Domain, error)
	ListDomains(ctx context.Context, tenantID string) ([]*domain.Domain, error)
	DeleteDomain(ctx context.Context, id string) error
	// SetDomainVerified stamps verified_at and clears the stored token digest.
	SetDomainVerified(ctx context.Context, id string, at time.Time) error
	// SetPrimaryDomain atomically makes the given domain the tenant's only
	// primary one.
	SetPrimaryDomain(ctx context.Context, tenantID, domainID string) error

	// UpsertRule inserts or replaces the rule named (DomainID, Name).
	UpsertRule(ctx context.Context, r *domain.DomainRule) error
	GetRule(ctx context.Context, domainID, name string) (*domain.DomainRule, error)
	ListRules(ctx context.Context, domainID string) ([]*domain.DomainRule, error)
}
