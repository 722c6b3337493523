// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment. Per the
// design rule "no ambient global state", components receive the values they
// need at construction; nothing reads this struct after wiring.
type Config struct {
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// ProductSlug names the deployment in DNS verification records
	// (_<slug>-verification.<domain>) and as the TOTP provisioning issuer.
	ProductSlug string `mapstructure:"PRODUCT_SLUG"`
	// TeamsEnabled controls whether registration creates/joins tenants. When
	// false, registration creates standalone principals only.
	TeamsEnabled bool `mapstructure:"TEAMS_ENABLED"`
	// MFAMethods is a comma-separated list of enabled factor types
	// (e.g. "authenticator,email").
	MFAMethods string `mapstructure:"MFA_METHODS"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// LoginTokenTTL is the lifetime of login-type bearer tokens (e.g. "720h").
	LoginTokenTTL string `mapstructure:"LOGIN_TOKEN_TTL"`
	// MFATokenTTL is the short lifetime of mfa-pending tokens (e.g. "10m").
	// Requested TTLs are clamped to this for mfa tokens.
	MFATokenTTL string `mapstructure:"MFA_TOKEN_TTL"`
	// EmailOTPTTL is the validity window of emailed one-time codes.
	EmailOTPTTL string `mapstructure:"EMAIL_OTP_TTL"`
	// InvitationTTL is the validity window of team invitations (default 168h).
	InvitationTTL string `mapstructure:"INVITATION_TTL"`
	// MagicLinkTTL is the validity window of passwordless login links.
	MagicLinkTTL string `mapstructure:"MAGIC_LINK_TTL"`
	// DNSTimeout bounds each TXT lookup during domain verification.
	DNSTimeout string `mapstructure:"DNS_TIMEOUT"`
	// LinkPrivateKey is the PEM-encoded private key (RSA or ECDSA) or a path
	// to one; signs invitation and magic-link tokens.
	LinkPrivateKey string `mapstructure:"LINK_PRIVATE_KEY"`
	// LinkPublicKey is the PEM-encoded public key or a path to one.
	LinkPublicKey string `mapstructure:"LINK_PUBLIC_KEY"`
	// LinkIssuer is the iss claim on signed links.
	LinkIssuer string `mapstructure:"LINK_ISSUER"`
	// LinkAudience is the aud claim on signed links.
	LinkAudience string `mapstructure:"LINK_AUDIENCE"`
	// EncryptionKey is the base64-encoded 32-byte AES key for TOTP seeds and
	// SSO client secrets.
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"`
	// RedisAddr is the address of the rate-limit store; empty disables limiting.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RateLimitMaxAttempts is the attempt budget per identifier per window.
	RateLimitMaxAttempts int `mapstructure:"RATE_LIMIT_MAX_ATTEMPTS"`
	// RateLimitWindow is the rate-limit window (e.g. "1m").
	RateLimitWindow string `mapstructure:"RATE_LIMIT_WINDOW"`
	// PasswordSoftExpiry warns after this much time since the last password
	// change (e.g. "2160h" for 90 days). Empty disables.
	PasswordSoftExpiry string `mapstructure:"PASSWORD_SOFT_EXPIRY"`
	// PasswordHardExpiry blocks after this much time since the last password
	// change. Empty disables.
	PasswordHardExpiry string `mapstructure:"PASSWORD_HARD_EXPIRY"`
	// LogLevel is the zap level ("debug", "info", "warn", "error").
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PRODUCT_SLUG", "idplane")
	v.SetDefault("TEAMS_ENABLED", true)
	v.SetDefault("MFA_METHODS", "authenticator,email")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOGIN_TOKEN_TTL", "720h") // 30d
	v.SetDefault("MFA_TOKEN_TTL", "10m")
	v.SetDefault("EMAIL_OTP_TTL", "10m")
	v.SetDefault("INVITATION_TTL", "168h") // 7d
	v.SetDefault("MAGIC_LINK_TTL", "15m")
	v.SetDefault("DNS_TIMEOUT", "5s")
	v.SetDefault("LINK_ISSUER", "idplane-auth")
	v.SetDefault("LINK_AUDIENCE", "idplane-links")
	v.SetDefault("ENCRYPTION_KEY", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("RATE_LIMIT_MAX_ATTEMPTS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("PASSWORD_SOFT_EXPIRY", "")
	v.SetDefault("PASSWORD_HARD_EXPIRY", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.ProductSlug == "" {
		return nil, errors.New("config: PRODUCT_SLUG must be set")
	}
	if strings.ContainsAny(cfg.ProductSlug, ". _") {
		return nil, errors.New("config: PRODUCT_SLUG must be a bare DNS label")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.EncryptionKey != "" {
		if _, err := cfg.EncryptionKeyBytes(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// MFAMethodsList returns the enabled MFA method names from the comma-separated
// config, lowercased and trimmed.
func (c *Config) MFAMethodsList() []string {
	if c == nil || c.MFAMethods == "" {
		return nil
	}
	parts := strings.Split(c.MFAMethods, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToLower(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EncryptionKeyBytes decodes ENCRYPTION_KEY and checks it is 32 bytes.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, errors.New("config: ENCRYPTION_KEY must be base64")
	}
	if len(key) != 32 {
		return nil, errors.New("config: ENCRYPTION_KEY must decode to 32 bytes")
	}
	return key, nil
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoginTTL parses LoginTokenTTL. Returns 720h if unset or invalid.
func (c *Config) LoginTTL() time.Duration { return duration(c.LoginTokenTTL, 720*time.Hour) }

// MFATTL parses MFATokenTTL. Returns 10m if unset or invalid.
func (c *Config) MFATTL() time.Duration { return duration(c.MFATokenTTL, 10*time.Minute) }

// OTPTTL parses EmailOTPTTL. Returns 10m if unset or invalid.
func (c *Config) OTPTTL() time.Duration { return duration(c.EmailOTPTTL, 10*time.Minute) }

// InviteTTL parses InvitationTTL. Returns 168h if unset or invalid.
func (c *Config) InviteTTL() time.Duration { return duration(c.InvitationTTL, 168*time.Hour) }

// MagicTTL parses MagicLinkTTL. Returns 15m if unset or invalid.
func (c *Config) MagicTTL() time.Duration { return duration(c.MagicLinkTTL, 15*time.Minute) }

// LookupTimeout parses DNSTimeout. Returns 5s if unset or invalid.
func (c *Config) LookupTimeout() time.Duration { return duration(c.DNSTimeout, 5*time.Second) }

// LimitWindow parses RateLimitWindow. Returns 1m if unset or invalid.
func (c *Config) LimitWindow() time.Duration { return duration(c.RateLimitWindow, time.Minute) }
