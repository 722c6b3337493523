package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Tenant is a team workspace owned by one user.
type Tenant struct {
	ID      string
	OwnerID string
	// Slug is the unique short handle used for explicit addressing.
	Slug string
	Name string
	// ActivatedAt is nil while the tenant is suspended; InactiveReason says why.
	ActivatedAt    *time.Time
	InactiveReason string
	CreatedAt      time.Time
}

// Active reports whether the tenant is activated.
func (t *Tenant) Active() bool { return t.ActivatedAt != nil }

// DomainType distinguishes how a domain was attached.
type DomainType string

const (
	// DomainTypeSubdomain is a subdomain of the product's base domain,
	// trusted without DNS proof.
	DomainTypeSubdomain DomainType = "subdomain"
	// DomainTypeCustom is a customer-owned domain that must prove ownership
	// via a TXT record.
	DomainTypeCustom DomainType = "custom"
)

// Domain is a hostname attached to a tenant. Custom domains carry the SHA-256
// digest of their verification token until verified; the plaintext token is
// returned once at claim time and never stored.
type Domain struct {
	ID                 string
	TenantID           string
	Name               string
	Type               DomainType
	IsPrimary          bool
	VerifiedAt         *time.Time
	VerificationDigest string
	CreatedAt          time.Time
}

// Verified reports whether ownership has been proven.
func (d *Domain) Verified() bool { return d.VerifiedAt != nil }

// Matches reports whether the domain name equals host, case-insensitively.
func (d *Domain) Matches(host string) bool {
	return strings.EqualFold(d.Name, strings.TrimSuffix(host, "."))
}

// RuleValueType types a DomainRule value.
type RuleValueType string

const (
	RuleValueBool   RuleValueType = "boolean"
	RuleValueText   RuleValueType = "text"
	RuleValueNumber RuleValueType = "number"
	RuleValueArray  RuleValueType = "array"
	RuleValueSelect RuleValueType = "select"
)

// Well-known rule names.
const (
	// RuleEnforceDomain restricts membership to addresses under the domain.
	RuleEnforceDomain = "enforce_domain"
	// RuleRequireMFA requires members to enroll a second factor.
	RuleRequireMFA = "require_mfa"
)

// DomainRule is one typed policy value attached to a domain.
type DomainRule struct {
	ID        string
	DomainID  string
	Name      string
	ValueType RuleValueType
	Value     json.RawMessage
	CreatedAt time.Time
}

// BoolValue decodes a boolean rule value; false when the rule is not boolean
// or malformed.
func (r *DomainRule) BoolValue() bool {
	if r.ValueType != RuleValueBool {
		return false
	}
	var v bool
	if err := json.Unmarshal(r.Value, &v); err != nil {
		return false
	}
	return v
}
