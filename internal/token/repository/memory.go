package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"identity-plane/internal/token/domain"
)

// MemoryRepository is an in-memory Repository for tests and embedded use.
// Promote holds the mutex across read-and-mutate, matching the single-statement
// atomicity of the Postgres implementation.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.AccessToken
}

// NewMemoryRepository returns an empty in-memory token repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]*domain.AccessToken)}
}

// Create stores a copy of the token.
func (r *MemoryRepository) Create(ctx context.Context, t *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.tokens[t.ID] = &c
	return nil
}

// GetByID returns a copy of the token, or nil.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

// ListByUser returns the user's tokens ordered by creation time.
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AccessToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateLastUsed records classification time.
func (r *MemoryRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[id]; ok {
		u := at
		t.LastUsedAt = &u
	}
	return nil
}

// Promote mutates type mfa -> login; returns false if the token is absent or
// no longer mfa-typed.
func (r *MemoryRepository) Promote(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Type != domain.TypeMFA {
		return false, nil
	}
	t.Type = domain.TypeLogin
	e := expiresAt
	t.ExpiresAt = &e
	return true, nil
}

// Delete removes the token.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
	return nil
}

// DeleteByUserAndType removes all of the user's tokens of the given type.
func (r *MemoryRepository) DeleteByUserAndType(ctx context.Context, userID string, typ domain.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.UserID == userID && t.Type == typ {
			delete(r.tokens, id)
		}
	}
	return nil
}
