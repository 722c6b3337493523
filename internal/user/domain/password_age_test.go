package domain

import (
	"testing"
	"time"
)

func TestEvaluatePasswordAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := AgePolicy{Soft: 90 * 24 * time.Hour, Hard: 180 * 24 * time.Hour}

	tests := []struct {
		name       string
		lastChange time.Time
		policy     AgePolicy
		want       AgeState
	}{
		{"fresh password", now.Add(-24 * time.Hour), policy, AgeOK},
		{"just under soft", now.Add(-89 * 24 * time.Hour), policy, AgeOK},
		{"at soft threshold", now.Add(-90 * 24 * time.Hour), policy, AgeWarn},
		{"between soft and hard", now.Add(-120 * 24 * time.Hour), policy, AgeWarn},
		{"at hard threshold", now.Add(-180 * 24 * time.Hour), policy, AgeBlock},
		{"ancient", now.Add(-10 * 365 * 24 * time.Hour), policy, AgeBlock},
		{"no policy", now.Add(-10 * 365 * 24 * time.Hour), AgePolicy{}, AgeOK},
		{"hard only", now.Add(-200 * 24 * time.Hour), AgePolicy{Hard: 180 * 24 * time.Hour}, AgeBlock},
		{"never changed", time.Time{}, policy, AgeOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluatePasswordAge(now, tt.lastChange, tt.policy)
			if got.State != tt.want {
				t.Errorf("EvaluatePasswordAge state = %d, want %d", got.State, tt.want)
			}
			if tt.want != AgeOK && got.Message == "" {
				t.Error("non-OK result should carry a message")
			}
		})
	}
}

func TestEmail_Domain(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"alice@Corp.Example.COM", "corp.example.com"},
		{"bob@example.com", "example.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}
	for _, tt := range tests {
		e := Email{Address: tt.address}
		if got := e.Domain(); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}
