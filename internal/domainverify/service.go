// Package domainverify proves tenant ownership of custom domains through DNS
// TXT records. The verification token is the sole proof of ownership: 128
// bits of entropy, stored as a digest, never logged.
package domainverify

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-plane/internal/fault"
	"identity-plane/internal/security"
	"identity-plane/internal/telemetry"
	"identity-plane/internal/tenant/domain"
	"identity-plane/internal/tenant/repository"
)

const verificationTokenBytes = 16

// Claim is the result of attaching a domain. Token and RecordName are set for
// custom domains only; the token is shown once.
type Claim struct {
	Domain     *domain.Domain
	Token      string
	RecordName string
}

// Service claims, verifies, and manages tenant domains.
type Service struct {
	repo        repository.Repository
	dns         TXTLookuper
	productSlug string
	metrics     *telemetry.Metrics
	log         *zap.Logger
	now         func() time.Time
}

// NewService returns a domain verification service. productSlug names the
// expected TXT record (`_<slug>-verification.<domain>`).
func NewService(repo repository.Repository, dns TXTLookuper, productSlug string,
	metrics *telemetry.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		dns:         dns,
		productSlug: productSlug,
		metrics:     metrics,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RecordName returns the DNS name whose TXT record must carry the token.
func (s *Service) RecordName(domainName string) string {
	return "_" + s.productSlug + "-verification." + domainName
}

// ClaimDomain attaches a domain to a tenant. Subdomains of the product are
// trusted immediately; custom domains get a verification token returned once
// alongside the expected record name. A tenant's first domain becomes
// primary.
func (s *Service) ClaimDomain(ctx context.Context, tenantID, name string, typ domain.DomainType) (*Claim, error) {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if name == "" {
		return nil, fault.New(fault.KindNotFound, "empty domain name")
	}
	existing, err := s.repo.GetDomainByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fault.New(fault.KindAlreadyExists, "domain already claimed")
	}
	siblings, err := s.repo.ListDomains(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.Domain{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		Type:      typ,
		IsPrimary: len(siblings) == 0,
		CreatedAt: now,
	}
	claim := &Claim{Domain: d}
	switch typ {
	case domain.DomainTypeSubdomain:
		v := now
		d.VerifiedAt = &v
	case domain.DomainTypeCustom:
		token, err := security.GenerateSecret(verificationTokenBytes)
		if err != nil {
			return nil, err
		}
		d.VerificationDigest = security.DigestSecret(token)
		claim.Token = token
		claim.RecordName = s.RecordName(name)
	default:
		return nil, fault.New(fault.KindNotFound, "unknown domain type")
	}
	if err := s.repo.CreateDomain(ctx, d); err != nil {
		return nil, err
	}
	return claim, nil
}

// Verify checks the domain's TXT record for the claimed token. Already
// verified domains return true without touching DNS. A failed or empty lookup
// is "not verified yet", not an error. The DNS call happens with no lock
// held; the commit is a separate write.
func (s *Service) Verify(ctx context.Context, domainID string) (bool, error) {
	d, err := s.repo.GetDomain(ctx, domainID)
	if err != nil {
		return false, err
	}
	if d == nil {
		return false, fault.New(fault.KindNotFound, "domain not found")
	}
	if d.Verified() {
		return true, nil
	}

	values, err := s.dns.LookupTXT(ctx, s.RecordName(d.Name))
	if err != nil {
		s.log.Debug("txt lookup failed",
			zap.String("domain", d.Name),
			zap.Error(err),
		)
		return false, nil
	}
	matched := false
	for _, v := range values {
		if security.DigestEqual(strings.TrimSpace(v), d.VerificationDigest) {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	if err := s.repo.SetDomainVerified(ctx, d.ID, s.now()); err != nil {
		return false, err
	}
	s.metrics.DomainVerified(ctx)
	s.log.Info("domain verified", zap.String("domain", d.Name), zap.String("tenant_id", d.TenantID))
	return true, nil
}

// MarkPrimary makes the domain the tenant's primary one. Unverified domains
// cannot become primary.
func (s *Service) MarkPrimary(ctx context.Context, domainID string) error {
	d, err := s.repo.GetDomain(ctx, domainID)
	if err != nil {
		return err
	}
	if d == nil {
		return fault.New(fault.KindNotFound, "domain not found")
	}
	if !d.Verified() {
		return fault.New(fault.KindConflict, "domain is not verified")
	}
	return s.repo.SetPrimaryDomain(ctx, d.TenantID, d.ID)
}

// Delete removes a domain. The tenant's last domain cannot be deleted; when
// the primary is deleted, the next remaining domain (verified preferred)
// becomes primary.
func (s *Service) Delete(ctx context.Context, domainID string) error {
	d, err := s.repo.GetDomain(ctx, domainID)
	if err != nil {
		return err
	}
	if d == nil {
		return fault.New(fault.KindNotFound, "domain not found")
	}
	siblings, err := s.repo.ListDomains(ctx, d.TenantID)
	if err != nil {
		return err
	}
	if len(siblings) <= 1 {
		return fault.New(fault.KindConflict, "cannot delete the tenant's last domain")
	}
	if err := s.repo.DeleteDomain(ctx, d.ID); err != nil {
		return err
	}
	if !d.IsPrimary {
		return nil
	}
	var next *domain.Domain
	for _, sib := range siblings {
		if sib.ID == d.ID {
			continue
		}
		if next == nil || (!next.Verified() && sib.Verified()) {
			next = sib
		}
	}
	return s.repo.SetPrimaryDomain(ctx, d.TenantID, next.ID)
}

// SetRule attaches or replaces a typed policy value on the domain.
func (s *Service) SetRule(ctx context.Context, domainID, name string, valueType domain.RuleValueType, value []byte) error {
	d, err := s.repo.GetDomain(ctx, domainID)
	if err != nil {
		return err
	}
	if d == nil {
		return fault.New(fault.KindNotFound, "domain not found")
	}
	return s.repo.UpsertRule(ctx, &domain.DomainRule{
		ID:        uuid.NewString(),
		DomainID:  domainID,
		Name:      name,
		ValueType: valueType,
		Value:     value,
		CreatedAt: s.now(),
	})
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
