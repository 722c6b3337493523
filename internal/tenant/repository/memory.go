package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"identity-plane/internal/tenant/domain"
)

// MemoryRepository is an in-memory Repository for tests and embedded use.
type MemoryRepository struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	domains map[string]*domain.Domain
	rules   map[string]*domain.DomainRule
}

// NewMemoryRepository returns an empty in-memory tenant repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tenants: make(map[string]*domain.Tenant),
		domains: make(map[string]*domain.Domain),
		rules:   make(map[string]*domain.DomainRule),
	}
}

// CreateTenant stores a copy of the tenant. Duplicate slugs are rejected like
// the unique constraint would.
func (r *MemoryRepository) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tenants {
		if existing.Slug == t.Slug {
			return errors.New("duplicate tenant slug")
		}
	}
	c := *t
	r.tenants[t.ID] = &c
	return nil
}

// GetTenant returns a copy of the tenant, or nil.
func (r *MemoryRepository) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

// GetTenantBySlug returns the tenant with the slug, or nil.
func (r *MemoryRepository) GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == slug {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

// SetTenantActivation sets or clears ActivatedAt.
func (r *MemoryRepository) SetTenantActivation(ctx context.Context, id string, activatedAt *time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return errors.New("tenant not found")
	}
	if activatedAt != nil {
		a := *activatedAt
		t.ActivatedAt = &a
	} else {
		t.ActivatedAt = nil
	}
	t.InactiveReason = reason
	return nil
}

// TransferOwner reassigns the owning user.
func (r *MemoryRepository) TransferOwner(ctx context.Context, id, newOwnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return errors.New("tenant not found")
	}
	t.OwnerID = newOwnerID
	return nil
}

// CreateDomain stores a copy of the domain. Duplicate names are rejected.
func (r *MemoryRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.domains {
		if strings.EqualFold(existing.Name, d.Name) {
			return errors.New("duplicate domain name")
		}
	}
	c := *d
	r.domains[d.ID] = &c
	return nil
}

// GetDomain returns a copy of the domain, or nil.
func (r *MemoryRepository) GetDomain(ctx context.Context, id string) (*domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domains[id]
	if !ok {
		return nil, nil
	}
	c := *d
	return &c, nil
}

// GetDomainByName returns the domain with the name, case-insensitively.
func (r *MemoryRepository) GetDomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.domains {
		if strings.EqualFold(d.Name, name) {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

// ListDomains returns the tenant's domains, oldest first.
func (r *MemoryRepository) ListDomains(ctx context.Context, tenantID string) ([]*domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Domain
	for _, d := range r.domains {
		if d.TenantID == tenantID {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteDomain removes the domain and its rules.
func (r *MemoryRepository) DeleteDomain(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.domains, id)
	for rid, rule := range r.rules {
		if rule.DomainID == id {
			delete(r.rules, rid)
		}
	}
	return nil
}

// SetDomainVerified stamps VerifiedAt and drops the token digest.
func (r *MemoryRepository) SetDomainVerified(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domains[id]
	if !ok {
		return errors.New("domain not found")
	}
	v := at
	d.VerifiedAt = &v
	d.VerificationDigest = ""
	return nil
}

// SetPrimaryDomain makes domainID the tenant's only primary domain.
func (r *MemoryRepository) SetPrimaryDomain(ctx context.Context, tenantID, domainID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.domains[domainID]
	if !ok || target.TenantID != tenantID {
		return errors.New("domain does not belong to tenant")
	}
	for _, d := range r.domains {
		if d.TenantID == tenantID {
			d.IsPrimary = false
		}
	}
	target.IsPrimary = true
	return nil
}

// UpsertRule inserts or replaces the rule named (DomainID, Name).
func (r *MemoryRepository) UpsertRule(ctx context.Context, rule *domain.DomainRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rules {
		if existing.DomainID == rule.DomainID && existing.Name == rule.Name {
			existing.ValueType = rule.ValueType
			existing.Value = append([]byte(nil), rule.Value...)
			return nil
		}
	}
	c := *rule
	c.Value = append([]byte(nil), rule.Value...)
	r.rules[rule.ID] = &c
	return nil
}

// GetRule returns the named rule, or nil.
func (r *MemoryRepository) GetRule(ctx context.Context, domainID, name string) (*domain.DomainRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.DomainID == domainID && rule.Name == name {
			c := *rule
			return &c, nil
		}
	}
	return nil, nil
}

// ListRules returns all rules on the domain, by name.
func (r *MemoryRepository) ListRules(ctx context.Context, domainID string) ([]*domain.DomainRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.DomainRule
	for _, rule := range r.rules {
		if rule.DomainID == domainID {
			c := *rule
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
