package config

import (
	"encoding/base64"
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.ProductSlug != "idplane" {
		t.Errorf("ProductSlug = %q, want %q", cfg.ProductSlug, "idplane")
	}
	if !cfg.TeamsEnabled {
		t.Error("TeamsEnabled should default to true")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if got := cfg.MFATTL(); got != 10*time.Minute {
		t.Errorf("MFATTL = %v, want 10m", got)
	}
	if got := cfg.InviteTTL(); got != 168*time.Hour {
		t.Errorf("InviteTTL = %v, want 168h", got)
	}
	if got := cfg.LookupTimeout(); got != 5*time.Second {
		t.Errorf("LookupTimeout = %v, want 5s", got)
	}
	if cfg.RateLimitMaxAttempts != 10 {
		t.Errorf("RateLimitMaxAttempts = %d, want 10", cfg.RateLimitMaxAttempts)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("PRODUCT_SLUG", "acme")
	os.Setenv("MFA_METHODS", "Authenticator, email ,")
	os.Setenv("BCRYPT_COST", "10")
	os.Setenv("MFA_TOKEN_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProductSlug != "acme" {
		t.Errorf("ProductSlug = %q, want %q", cfg.ProductSlug, "acme")
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if got := cfg.MFATTL(); got != 5*time.Minute {
		t.Errorf("MFATTL = %v, want 5m", got)
	}
	methods := cfg.MFAMethodsList()
	if len(methods) != 2 || methods[0] != "authenticator" || methods[1] != "email" {
		t.Errorf("MFAMethodsList = %v, want [authenticator email]", methods)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "2"}},
		{"product slug with dot", map[string]string{"PRODUCT_SLUG": "a.b"}},
		{"encryption key not base64", map[string]string{"ENCRYPTION_KEY": "!!!"}},
		{"encryption key wrong size", map[string]string{"ENCRYPTION_KEY": base64.StdEncoding.EncodeToString([]byte("short"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load: want error, got nil")
			}
		})
	}
}

func TestEncryptionKeyBytes(t *testing.T) {
	os.Clearenv()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	os.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := cfg.EncryptionKeyBytes()
	if err != nil {
		t.Fatalf("EncryptionKeyBytes: %v", err)
	}
	if len(got) != 32 || got[31] != 31 {
		t.Errorf("EncryptionKeyBytes returned wrong key")
	}
}
