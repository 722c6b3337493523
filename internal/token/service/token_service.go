// Package service implements bearer token issuance, classification, and the
// mfa -> login promotion state machine.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-plane/internal/fault"
	"identity-plane/internal/security"
	"identity-plane/internal/telemetry"
	"identity-plane/internal/token/domain"
	"identity-plane/internal/token/repository"
)

// ScopeMFAVerify is the only scope an mfa token authorizes. Every other
// requested scope against an mfa token fails with an mfa_required fault.
const ScopeMFAVerify = "auth.mfa.verify"

const secretBytes = 32

// Service manages opaque bearer tokens in the `<id>.<secret>` form. Secrets
// are stored as SHA-256 digests only; the plaintext form is returned once at
// issuance.
type Service struct {
	repo     repository.Repository
	loginTTL time.Duration
	mfaTTL   time.Duration
	metrics  *telemetry.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewService returns a token service. loginTTL bounds login tokens and
// promoted mfa tokens; mfaTTL bounds mfa tokens regardless of the TTL
// requested at issuance.
func NewService(repo repository.Repository, loginTTL, mfaTTL time.Duration, metrics *telemetry.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		loginTTL: loginTTL,
		mfaTTL:   mfaTTL,
		metrics:  metrics,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a token of the given type and returns the plaintext
// credential alongside the stored record. ttl of zero means no expiry for api
// tokens; mfa tokens always get the short configured TTL no matter what ttl
// was requested. loginAttemptID correlates the token with its audit record
// and may be empty for api tokens.
func (s *Service) Issue(ctx context.Context, userID string, typ domain.Type, ttl time.Duration, permissions []string, loginAttemptID string) (string, *domain.AccessToken, error) {
	secret, err := security.GenerateSecret(secretBytes)
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	if typ == domain.TypeMFA {
		ttl = s.mfaTTL
	}
	var expiresAt *time.Time
	if ttl > 0 {
		e := now.Add(ttl)
		expiresAt = &e
	}
	t := &domain.AccessToken{
		ID:             uuid.NewString(),
		UserID:         userID,
		Type:           typ,
		SecretDigest:   security.DigestSecret(secret),
		Permissions:    permissions,
		ExpiresAt:      expiresAt,
		LoginAttemptID: loginAttemptID,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return "", nil, err
	}
	s.metrics.TokenIssued(ctx, string(typ))
	return t.ID + "." + secret, t, nil
}

// Classify resolves a presented credential to its stored token. Parse
// failures, unknown identifiers, and digest mismatches all collapse to one
// invalid-credential fault; only a known token past its expiry reports
// expired.
func (s *Service) Classify(ctx context.Context, presented string) (*domain.AccessToken, error) {
	id, secret, ok := strings.Cut(presented, ".")
	if !ok || id == "" || secret == "" {
		return nil, fault.New(fault.KindInvalidCredential, "malformed token")
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || !security.DigestEqual(secret, t.SecretDigest) {
		return nil, fault.New(fault.KindInvalidCredential, "unknown token")
	}
	now := s.now()
	if t.Expired(now) {
		return nil, fault.New(fault.KindExpired, "token expired")
	}
	if err := s.repo.UpdateLastUsed(ctx, t.ID, now); err != nil {
		s.log.Warn("token last_used update failed", zap.String("token_id", t.ID), zap.Error(err))
	}
	u := now
	t.LastUsedAt = &u
	return t, nil
}

// Authorize reports whether the token may perform an operation in scope. An
// mfa token authorizes only ScopeMFAVerify, a login token authorizes every
// owner-scoped operation, and an api token authorizes only the scopes in its
// permission set.
func (s *Service) Authorize(t *domain.AccessToken, scope string) error {
	switch t.Type {
	case domain.TypeMFA:
		if scope == ScopeMFAVerify {
			return nil
		}
		return fault.New(fault.KindMFARequired, "second factor verification required")
	case domain.TypeLogin:
		return nil
	case domain.TypeAPI:
		if t.Grants(scope) {
			return nil
		}
		return fault.New(fault.KindPermissionDenied, "token does not grant "+scope)
	}
	return fault.New(fault.KindPermissionDenied, "unknown token type")
}

// Promote converts an mfa token to a login token in place, so the credential
// the client already holds stays valid across the factor check. Exactly one
// of any concurrent promotions of the same token wins; losers get an
// invalid-credential fault because the token no longer awaits verification.
func (s *Service) Promote(ctx context.Context, t *domain.AccessToken) (*domain.AccessToken, error) {
	expiresAt := s.now().Add(s.loginTTL)
	ok, err := s.repo.Promote(ctx, t.ID, expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fault.New(fault.KindInvalidCredential, "token is not awaiting verification")
	}
	promoted := *t
	promoted.Type = domain.TypeLogin
	promoted.ExpiresAt = &expiresAt
	return &promoted, nil
}

// Revoke deletes one token. Revoking an absent token is a no-op.
func (s *Service) Revoke(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// RevokeAll deletes every login token of the user. Api tokens are delegated
// credentials and survive a logout-all; pending mfa tokens simply expire.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.repo.DeleteByUserAndType(ctx, userID, domain.TypeLogin)
}

// ListForUser returns the user's tokens, oldest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*domain.AccessToken, error) {
	return s.repo.ListByUser(ctx, userID)
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
