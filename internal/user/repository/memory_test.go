package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"identity-plane/internal/user/domain"
)

func seedUserWithEmails(t *testing.T, r *MemoryRepository, userID string, addrs ...string) []*domain.Email {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := r.CreateUser(ctx, &domain.User{ID: userID, Active: true, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	var emails []*domain.Email
	for i, addr := range addrs {
		e := &domain.Email{
			ID:        fmt.Sprintf("%s-e%d", userID, i),
			UserID:    userID,
			Address:   addr,
			IsPrimary: i == 0,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := r.AddEmail(ctx, e); err != nil {
			t.Fatalf("AddEmail: %v", err)
		}
		emails = append(emails, e)
	}
	return emails
}

func countPrimaries(t *testing.T, r *MemoryRepository, userID string) int {
	t.Helper()
	emails, err := r.ListEmails(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	n := 0
	for _, e := range emails {
		if e.IsPrimary {
			n++
		}
	}
	return n
}

func TestSetPrimaryEmail_ExactlyOnePrimary(t *testing.T) {
	r := NewMemoryRepository()
	emails := seedUserWithEmails(t, r, "u1", "a@example.com", "b@example.com", "c@example.com")

	if err := r.SetPrimaryEmail(context.Background(), "u1", emails[2].ID); err != nil {
		t.Fatalf("SetPrimaryEmail: %v", err)
	}
	if got := countPrimaries(t, r, "u1"); got != 1 {
		t.Errorf("primary count = %d, want 1", got)
	}
	p, err := r.PrimaryEmail(context.Background(), "u1")
	if err != nil {
		t.Fatalf("PrimaryEmail: %v", err)
	}
	if p == nil || p.Address != "c@example.com" {
		t.Errorf("primary = %+v, want c@example.com", p)
	}
}

func TestSetPrimaryEmail_ConcurrentFlips(t *testing.T) {
	r := NewMemoryRepository()
	emails := seedUserWithEmails(t, r, "u1", "a@example.com", "b@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		target := emails[i%2].ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.SetPrimaryEmail(context.Background(), "u1", target)
		}()
	}
	wg.Wait()

	if got := countPrimaries(t, r, "u1"); got != 1 {
		t.Errorf("primary count after concurrent flips = %d, want exactly 1", got)
	}
}

func TestSetPrimaryEmail_WrongUser(t *testing.T) {
	r := NewMemoryRepository()
	emails := seedUserWithEmails(t, r, "u1", "a@example.com")
	seedUserWithEmails(t, r, "u2", "x@example.com")

	if err := r.SetPrimaryEmail(context.Background(), "u2", emails[0].ID); err == nil {
		t.Error("SetPrimaryEmail across users: want error, got nil")
	}
}

func TestLatestPassword(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	_ = r.AddPassword(ctx, &domain.Password{ID: "p1", UserID: "u1", Digest: "old", CreatedAt: now.Add(-time.Hour)})
	_ = r.AddPassword(ctx, &domain.Password{ID: "p2", UserID: "u1", Digest: "new", CreatedAt: now})

	p, err := r.LatestPassword(ctx, "u1")
	if err != nil {
		t.Fatalf("LatestPassword: %v", err)
	}
	if p == nil || p.Digest != "new" {
		t.Errorf("LatestPassword = %+v, want newest entry", p)
	}

	none, err := r.LatestPassword(ctx, "u2")
	if err != nil || none != nil {
		t.Errorf("LatestPassword for unknown user = (%v, %v), want (nil, nil)", none, err)
	}
}

func TestMarkEmailVerified_Idempotent(t *testing.T) {
	r := NewMemoryRepository()
	emails := seedUserWithEmails(t, r, "u1", "a@example.com")
	ctx := context.Background()

	first := time.Now().UTC().Add(-time.Hour)
	if err := r.MarkEmailVerified(ctx, emails[0].ID, first); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}
	// second call must not move the timestamp
	if err := r.MarkEmailVerified(ctx, emails[0].ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}
	got, _ := r.GetEmailByAddress(ctx, "a@example.com")
	if got.VerifiedAt == nil || !got.VerifiedAt.Equal(first) {
		t.Errorf("VerifiedAt = %v, want first timestamp %v", got.VerifiedAt, first)
	}
}
