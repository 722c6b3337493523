// Package domain holds external identity assertions consumed by the auth
// orchestration service.
package domain

// Provider names an external identity provider.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderOkta      Provider = "okta"
	ProviderOIDC      Provider = "oidc"
)

// ExternalIdentity is a provider's assertion about a principal after a
// completed OAuth/OIDC exchange. A provider-verified email counts as a
// verified owned email here.
type ExternalIdentity struct {
	Provider       Provider
	ProviderUserID string
	Email          string
	Name           string
	EmailVerified  bool
}
