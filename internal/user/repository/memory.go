package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"identity-plane/internal/user/domain"
)

// MemoryRepository is an in-memory Repository for tests and embedded use.
// All operations hold one mutex, which makes the primary-email flip atomic.
type MemoryRepository struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	emails    map[string]*domain.Email
	passwords map[string][]*domain.Password
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]*domain.User),
		emails:    make(map[string]*domain.Email),
		passwords: make(map[string][]*domain.Password),
	}
}

// CreateUser stores a copy of the user.
func (r *MemoryRepository) CreateUser(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *u
	r.users[u.ID] = &c
	return nil
}

// GetUser returns a copy of the user, or nil.
func (r *MemoryRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

// SetActive flips the active flag.
func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Active = active
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// AddEmail stores a copy of the email.
func (r *MemoryRepository) AddEmail(ctx context.Context, e *domain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *e
	r.emails[e.ID] = &c
	return nil
}

// GetEmailByAddress returns the email with the address (case-insensitive), or nil.
func (r *MemoryRepository) GetEmailByAddress(ctx context.Context, address string) (*domain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.emails {
		if strings.EqualFold(e.Address, address) {
			c := *e
			return &c, nil
		}
	}
	return nil, nil
}

// ListEmails returns the user's emails ordered by creation time.
func (r *MemoryRepository) ListEmails(ctx context.Context, userID string) ([]*domain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Email
	for _, e := range r.emails {
		if e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// PrimaryEmail returns the user's primary email, or nil.
func (r *MemoryRepository) PrimaryEmail(ctx context.Context, userID string) (*domain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.emails {
		if e.UserID == userID && e.IsPrimary {
			c := *e
			return &c, nil
		}
	}
	return nil, nil
}

// SetPrimaryEmail unsets then sets under one mutex hold.
func (r *MemoryRepository) SetPrimaryEmail(ctx context.Context, userID, emailID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.emails[emailID]
	if !ok || target.UserID != userID {
		return sql.ErrNoRows
	}
	for _, e := range r.emails {
		if e.UserID == userID {
			e.IsPrimary = false
		}
	}
	target.IsPrimary = true
	return nil
}

// MarkEmailVerified sets verified_at once.
func (r *MemoryRepository) MarkEmailVerified(ctx context.Context, emailID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.emails[emailID]; ok && e.VerifiedAt == nil {
		t := at
		e.VerifiedAt = &t
	}
	return nil
}

// SetEmailOTP stores the hashed one-time code and expiry.
func (r *MemoryRepository) SetEmailOTP(ctx context.Context, emailID, digest string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.emails[emailID]; ok {
		t := expiresAt
		e.OTPDigest = digest
		e.OTPExpiresAt = &t
	}
	return nil
}

// ClearEmailOTP removes the stored one-time code.
func (r *MemoryRepository) ClearEmailOTP(ctx context.Context, emailID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.emails[emailID]; ok {
		e.OTPDigest = ""
		e.OTPExpiresAt = nil
	}
	return nil
}

// AddPassword appends to the password history.
func (r *MemoryRepository) AddPassword(ctx context.Context, p *domain.Password) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	r.passwords[p.UserID] = append(r.passwords[p.UserID], &c)
	return nil
}

// LatestPassword returns the newest history entry, or nil.
func (r *MemoryRepository) LatestPassword(ctx context.Context, userID string) (*domain.Password, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hist := r.passwords[userID]
	if len(hist) == 0 {
		return nil, nil
	}
	latest := hist[0]
	for _, p := range hist[1:] {
		if p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	c := *latest
	return &c, nil
}
