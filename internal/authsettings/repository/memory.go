package repository

import (
	"context"
	"sync"

	"identity-plane/internal/authsettings/domain"
)

// MemoryRepository is an in-memory Repository for tests and embedded use.
type MemoryRepository struct {
	mu       sync.Mutex
	settings map[string]*domain.Settings
}

// NewMemoryRepository returns an empty in-memory settings repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{settings: make(map[string]*domain.Settings)}
}

// Upsert inserts or replaces the tenant's settings.
func (r *MemoryRepository) Upsert(ctx context.Context, s *domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	if s.SSO != nil {
		sso := *s.SSO
		if s.SSO.Extra != nil {
			sso.Extra = make(map[string]string, len(s.SSO.Extra))
			for k, v := range s.SSO.Extra {
				sso.Extra[k] = v
			}
		}
		c.SSO = &sso
	}
	r.settings[s.TenantID] = &c
	return nil
}

// Get returns a copy of the tenant's settings, or nil.
func (r *MemoryRepository) Get(ctx context.Context, tenantID string) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[tenantID]
	if !ok {
		return nil, nil
	}
	c := *s
	if s.SSO != nil {
		sso := *s.SSO
		c.SSO = &sso
	}
	return &c, nil
}

// Delete removes the tenant's settings.
func (r *MemoryRepository) Delete(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.settings, tenantID)
	return nil
}
