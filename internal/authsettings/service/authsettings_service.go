// Package service manages per-tenant authentication policy. SSO client
// secrets pass through here exactly once in plaintext and are stored
// encrypted.
package service

import (
	"context"
	"time"

	"identity-plane/internal/authsettings/domain"
	"identity-plane/internal/authsettings/repository"
	"identity-plane/internal/fault"
	"identity-plane/internal/security"
)

// Service reads and writes tenant auth settings.
type Service struct {
	repo repository.Repository
	enc  *security.Encryptor
	now  func() time.Time
}

// NewService returns an auth settings service.
func NewService(repo repository.Repository, enc *security.Encryptor) *Service {
	return &Service{
		repo: repo,
		enc:  enc,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the tenant's settings; tenants without a row default to
// password auth.
func (s *Service) Get(ctx context.Context, tenantID string) (*domain.Settings, error) {
	st, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		now := s.now()
		return &domain.Settings{
			TenantID:   tenantID,
			AuthMethod: domain.AuthMethodPassword,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, nil
	}
	return st, nil
}

// UsePassword switches the tenant to password authentication, dropping any
// SSO configuration.
func (s *Service) UsePassword(ctx context.Context, tenantID string) error {
	existing, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	now := s.now()
	created := now
	if existing != nil {
		created = existing.CreatedAt
	}
	return s.repo.Upsert(ctx, &domain.Settings{
		TenantID:   tenantID,
		AuthMethod: domain.AuthMethodPassword,
		CreatedAt:  created,
		UpdatedAt:  now,
	})
}

// ConfigureSSO switches the tenant to SSO with the given provider config.
// clientSecret arrives in plaintext and is stored encrypted.
func (s *Service) ConfigureSSO(ctx context.Context, tenantID string, provider domain.SSOProvider,
	clientID, clientSecret, tenantHint string, extra map[string]string,
	autoProvision bool, autoProvisionRole string) error {
	if !domain.ValidProvider(provider) {
		return fault.New(fault.KindNotFound, "unknown sso provider")
	}
	secretEnc, err := s.enc.Encrypt([]byte(clientSecret))
	if err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	now := s.now()
	created := now
	if existing != nil {
		created = existing.CreatedAt
	}
	if autoProvisionRole == "" {
		autoProvisionRole = "member"
	}
	return s.repo.Upsert(ctx, &domain.Settings{
		TenantID:   tenantID,
		AuthMethod: domain.AuthMethodSSO,
		SSO: &domain.SSOConfig{
			Provider:        provider,
			ClientID:        clientID,
			ClientSecretEnc: secretEnc,
			TenantHint:      tenantHint,
			Extra:           extra,
		},
		AutoProvision:     autoProvision,
		AutoProvisionRole: autoProvisionRole,
		CreatedAt:         created,
		UpdatedAt:         now,
	})
}

// ClientSecret decrypts the stored SSO client secret for the outbound
// provider exchange.
func (s *Service) ClientSecret(ctx context.Context, tenantID string) (string, error) {
	st, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if st == nil || st.SSO == nil || st.SSO.ClientSecretEnc == "" {
		return "", fault.New(fault.KindNotFound, "no sso configuration")
	}
	plain, err := s.enc.Decrypt(st.SSO.ClientSecretEnc)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
