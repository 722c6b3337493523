// Package resolver maps hosts, slugs, and email domains to tenants. Only
// verified domains participate in trust decisions: an attacker who claimed a
// domain without completing TXT proof must never resolve.
package resolver

import (
	"context"
	"strings"

	"identity-plane/internal/tenant/domain"
	"identity-plane/internal/tenant/repository"
)

// Resolver answers tenant lookup and auto-join trust questions.
type Resolver struct {
	repo repository.Repository
}

// New returns a resolver over the tenant repository.
func New(repo repository.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveByHost returns the tenant owning a verified domain equal to host, or
// nil. Unverified matches never resolve.
func (r *Resolver) ResolveByHost(ctx context.Context, host string) (*domain.Tenant, error) {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if host == "" {
		return nil, nil
	}
	d, err := r.repo.GetDomainByName(ctx, host)
	if err != nil {
		return nil, err
	}
	if d == nil || !d.Verified() {
		return nil, nil
	}
	return r.repo.GetTenant(ctx, d.TenantID)
}

// ResolveBySlug returns the tenant with the slug, or nil. Slug addressing is
// explicit and independent of domain verification.
func (r *Resolver) ResolveBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return r.repo.GetTenantBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// ResolvePrimary returns the tenant's verified primary domain, or nil.
func (r *Resolver) ResolvePrimary(ctx context.Context, tenantID string) (*domain.Domain, error) {
	domains, err := r.repo.ListDomains(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, d := range domains {
		if d.IsPrimary && d.Verified() {
			return d, nil
		}
	}
	return nil, nil
}

// IsTrustedForAutoJoin reports whether an email under emailDomain may join
// the tenant automatically: true only when the tenant holds a verified domain
// matching it, case-insensitively.
func (r *Resolver) IsTrustedForAutoJoin(ctx context.Context, tenantID, emailDomain string) (bool, error) {
	domains, err := r.repo.ListDomains(ctx, tenantID)
	if err != nil {
		return false, err
	}
	for _, d := range domains {
		if d.Verified() && d.Matches(emailDomain) {
			return true, nil
		}
	}
	return false, nil
}
