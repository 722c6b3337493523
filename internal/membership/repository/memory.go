package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"identity-plane/internal/membership/domain"
)

// MemoryRepository is an in-memory Repository for tests and embedded use.
type MemoryRepository struct {
	mu          sync.Mutex
	memberships map[string]*domain.Membership
	invitations map[string]*domain.TeamInvitation
}

// NewMemoryRepository returns an empty in-memory membership repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		memberships: make(map[string]*domain.Membership),
		invitations: make(map[string]*domain.TeamInvitation),
	}
}

// CreateMembership stores a copy of the relation.
func (r *MemoryRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *m
	r.memberships[m.ID] = &c
	return nil
}

// GetMembership returns the (user, tenant) relation, or nil.
func (r *MemoryRepository) GetMembership(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.UserID == userID && m.TenantID == tenantID {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

// GetMembershipByID returns the relation, or nil.
func (r *MemoryRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

// ListByTenant returns the tenant's relations, oldest first.
func (r *MemoryRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error) {
	return r.listWhere(func(m *domain.Membership) bool { return m.TenantID == tenantID })
}

// ListByUser returns the user's relations, oldest first.
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return r.listWhere(func(m *domain.Membership) bool { return m.UserID == userID })
}

func (r *MemoryRepository) listWhere(keep func(*domain.Membership) bool) ([]*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Membership
	for _, m := range r.memberships {
		if keep(m) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetJoined marks the relation accepted with the final role.
func (r *MemoryRepository) SetJoined(ctx context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.memberships[id]; ok {
		m.Joined = true
		m.Role = role
	}
	return nil
}

// SetRole updates the member's role.
func (r *MemoryRepository) SetRole(ctx context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.memberships[id]; ok {
		m.Role = role
	}
	return nil
}

// SetDeactivated sets or clears the deactivation timestamp.
func (r *MemoryRepository) SetDeactivated(ctx context.Context, id string, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.memberships[id]; ok {
		if at != nil {
			v := *at
			m.DeactivatedAt = &v
		} else {
			m.DeactivatedAt = nil
		}
	}
	return nil
}

// DeleteMembership removes the relation.
func (r *MemoryRepository) DeleteMembership(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.memberships, id)
	return nil
}

// CreateInvitation stores a copy of the invitation.
func (r *MemoryRepository) CreateInvitation(ctx context.Context, i *domain.TeamInvitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *i
	r.invitations[i.ID] = &c
	return nil
}

// GetInvitation returns the invitation, or nil.
func (r *MemoryRepository) GetInvitation(ctx context.Context, id string) (*domain.TeamInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.invitations[id]
	if !ok {
		return nil, nil
	}
	c := *i
	return &c, nil
}

// GetInvitationByEmail returns the tenant's invitation for the address, or nil.
func (r *MemoryRepository) GetInvitationByEmail(ctx context.Context, tenantID, email string) (*domain.TeamInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.invitations {
		if i.TenantID == tenantID && strings.EqualFold(i.Email, email) {
			c := *i
			return &c, nil
		}
	}
	return nil, nil
}

// ListInvitations returns the tenant's open invitations, oldest first.
func (r *MemoryRepository) ListInvitations(ctx context.Context, tenantID string) ([]*domain.TeamInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TeamInvitation
	for _, i := range r.invitations {
		if i.TenantID == tenantID {
			c := *i
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteInvitation removes the invitation.
func (r *MemoryRepository) DeleteInvitation(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invitations, id)
	return nil
}
