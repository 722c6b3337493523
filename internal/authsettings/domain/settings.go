package domain

import "time"

// AuthMethod selects how a tenant's members authenticate.
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodSSO      AuthMethod = "sso"
)

// SSOProvider is the closed set of supported identity providers. Generic
// OIDC covers anything else.
type SSOProvider string

const (
	ProviderGoogle    SSOProvider = "google"
	ProviderMicrosoft SSOProvider = "microsoft"
	ProviderOkta      SSOProvider = "okta"
	ProviderOIDC      SSOProvider = "oidc"
)

// ValidProvider reports whether p is a known provider id.
func ValidProvider(p SSOProvider) bool {
	switch p {
	case ProviderGoogle, ProviderMicrosoft, ProviderOkta, ProviderOIDC:
		return true
	}
	return false
}

// SSOConfig is the provider-specific part of a tenant's auth settings. The
// client secret is stored AES-GCM encrypted and never logged. TenantHint
// carries the provider-side tenant/org identifier where the provider has one
// (Microsoft tenant id, Okta org url); Extra holds any remaining
// provider-specific keys (issuer url for generic OIDC, hosted domain for
// Google).
type SSOConfig struct {
	Provider        SSOProvider
	ClientID        string
	ClientSecretEnc string
	TenantHint      string
	Extra           map[string]string
}

// Settings is a tenant's authentication policy, one row per tenant.
type Settings struct {
	TenantID   string
	AuthMethod AuthMethod
	// SSO is nil when AuthMethod is password.
	SSO *SSOConfig
	// AutoProvision lets a verified external identity create an account and
	// join the tenant on first login, with AutoProvisionRole.
	AutoProvision     bool
	AutoProvisionRole string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
