package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"identity-plane/internal/mfa/domain"
)

// MemoryRepository is an in-memory Repository for tests and embedded use.
type MemoryRepository struct {
	mu      sync.Mutex
	methods map[string]*domain.Method
	codes   map[string]*domain.RecoveryCode
}

// NewMemoryRepository returns an empty in-memory MFA repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		methods: make(map[string]*domain.Method),
		codes:   make(map[string]*domain.RecoveryCode),
	}
}

// CreateMethod stores a copy of the method.
func (r *MemoryRepository) CreateMethod(ctx context.Context, m *domain.Method) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *m
	r.methods[m.ID] = &c
	return nil
}

// GetMethod returns a copy of the user's method of the given kind, or nil.
func (r *MemoryRepository) GetMethod(ctx context.Context, userID string, kind domain.Kind) (*domain.Method, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.methods {
		if m.UserID == userID && m.Kind == kind {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

// ListMethods returns the user's methods, oldest first.
func (r *MemoryRepository) ListMethods(ctx context.Context, userID string) ([]*domain.Method, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Method
	for _, m := range r.methods {
		if m.UserID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteMethod removes the method.
func (r *MemoryRepository) DeleteMethod(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.methods, id)
	return nil
}

// SetPreferred makes methodID the user's only preferred method.
func (r *MemoryRepository) SetPreferred(ctx context.Context, userID, methodID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.methods[methodID]
	if !ok || target.UserID != userID {
		return errors.New("method does not belong to user")
	}
	for _, m := range r.methods {
		if m.UserID == userID {
			m.Preferred = false
		}
	}
	target.Preferred = true
	return nil
}

// SetOTP stores a fresh email OTP digest and expiry.
func (r *MemoryRepository) SetOTP(ctx context.Context, methodID, digest string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[methodID]; ok {
		e := expiresAt
		m.OTPDigest = digest
		m.OTPExpiresAt = &e
	}
	return nil
}

// ClearOTP removes the outstanding email OTP.
func (r *MemoryRepository) ClearOTP(ctx context.Context, methodID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[methodID]; ok {
		m.OTPDigest = ""
		m.OTPExpiresAt = nil
	}
	return nil
}

// TouchLastUsed records a successful verification.
func (r *MemoryRepository) TouchLastUsed(ctx context.Context, methodID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[methodID]; ok {
		u := at
		m.LastUsedAt = &u
	}
	return nil
}

// AddRecoveryCodes stores copies of the codes.
func (r *MemoryRepository) AddRecoveryCodes(ctx context.Context, codes []*domain.RecoveryCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range codes {
		c := *code
		r.codes[code.ID] = &c
	}
	return nil
}

// DeleteRecoveryCodes removes all of the user's codes.
func (r *MemoryRepository) DeleteRecoveryCodes(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.codes {
		if c.UserID == userID {
			delete(r.codes, id)
		}
	}
	return nil
}

// ConsumeRecoveryCode deletes the matching code under the lock, so exactly
// one concurrent presentation wins.
func (r *MemoryRepository) ConsumeRecoveryCode(ctx context.Context, userID, digest string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.codes {
		if c.UserID == userID && c.Digest == digest {
			delete(r.codes, id)
			return true, nil
		}
	}
	return false, nil
}
