package repository

import (
	"context"
	"sync"

	"identity-plane/internal/audit/domain"
)

// MemoryRepository is an in-memory Repository for tests and embedded use.
type MemoryRepository struct {
	mu       sync.Mutex
	attempts []*domain.LoginAttempt
}

// NewMemoryRepository returns an empty in-memory attempt repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends a copy of the attempt.
func (r *MemoryRepository) Create(ctx context.Context, a *domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.attempts = append(r.attempts, &c)
	return nil
}

// ListByUser returns the user's attempts, newest first.
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.LoginAttempt
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.attempts[i].UserID == userID {
			c := *r.attempts[i]
			out = append(out, &c)
		}
	}
	return out, nil
}
