// Package service implements second-factor enrollment and verification. A
// successful verification promotes the caller's pending bearer token to a
// fully authenticated one; failures are uniform so callers cannot probe which
// factor or code was wrong.
package service

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-plane/internal/fault"
	"identity-plane/internal/mfa"
	"identity-plane/internal/mfa/domain"
	"identity-plane/internal/mfa/repository"
	"identity-plane/internal/notify"
	"identity-plane/internal/security"
	"identity-plane/internal/telemetry"
	tokendomain "identity-plane/internal/token/domain"
	tokenservice "identity-plane/internal/token/service"
	userrepo "identity-plane/internal/user/repository"
)

const (
	recoveryCodeCount = 10
	recoveryCodeChars = 10
	// 32 characters so byte-mod indexing is unbiased.
	recoveryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Enrollment is the result of adding a factor. SecretBase32 and ProvisionURI
// are set for authenticator methods only and are shown once.
type Enrollment struct {
	Method       *domain.Method
	SecretBase32 string
	ProvisionURI string
}

// VerifyResult is a successful factor verification: the promoted token (the
// client's credential string is unchanged) and whether the account's primary
// email is verified.
type VerifyResult struct {
	Token         *tokendomain.AccessToken
	EmailVerified bool
}

// Service verifies and manages second factors.
type Service struct {
	repo    repository.Repository
	users   userrepo.Repository
	tokens  *tokenservice.Service
	enc     *security.Encryptor
	notify  notify.Dispatcher
	metrics *telemetry.Metrics
	log     *zap.Logger
	issuer  string
	otpTTL  time.Duration
	enabled map[domain.Kind]bool
	now     func() time.Time
}

// NewService returns an MFA service. issuer labels provisioning URIs; otpTTL
// bounds email OTP validity. enabledMethods lists the enrollable factor kinds
// (config MFA_METHODS); nil or empty enables all of them.
func NewService(repo repository.Repository, users userrepo.Repository, tokens *tokenservice.Service,
	enc *security.Encryptor, dispatcher notify.Dispatcher, issuer string, otpTTL time.Duration,
	enabledMethods []string, metrics *telemetry.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher(log)
	}
	var enabled map[domain.Kind]bool
	if len(enabledMethods) > 0 {
		enabled = make(map[domain.Kind]bool, len(enabledMethods))
		for _, name := range enabledMethods {
			enabled[domain.Kind(strings.ToLower(strings.TrimSpace(name)))] = true
		}
	}
	return &Service{
		repo:    repo,
		users:   users,
		tokens:  tokens,
		enc:     enc,
		notify:  dispatcher,
		metrics: metrics,
		log:     log,
		issuer:  issuer,
		otpTTL:  otpTTL,
		enabled: enabled,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Enrolled reports whether the user has at least one factor configured.
func (s *Service) Enrolled(ctx context.Context, userID string) (bool, error) {
	methods, err := s.repo.ListMethods(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(methods) > 0, nil
}

// Methods returns the user's enrolled factors.
func (s *Service) Methods(ctx context.Context, userID string) ([]*domain.Method, error) {
	return s.repo.ListMethods(ctx, userID)
}

// Add enrolls a factor. The first factor becomes preferred. Enrolling a kind
// the user already has signals already_configured without changing state, and
// kinds absent from the deployment's enabled set are refused.
func (s *Service) Add(ctx context.Context, userID string, kind domain.Kind) (*Enrollment, error) {
	if kind != domain.KindAuthenticator && kind != domain.KindEmail {
		return nil, fault.New(fault.KindNotFound, "unknown mfa method")
	}
	if s.enabled != nil && !s.enabled[kind] {
		return nil, fault.New(fault.KindPermissionDenied, string(kind)+" enrollment is not enabled")
	}
	existing, err := s.repo.GetMethod(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fault.New(fault.KindAlreadyConfigured, string(kind)+" already enrolled")
	}
	others, err := s.repo.ListMethods(ctx, userID)
	if err != nil {
		return nil, err
	}

	m := &domain.Method{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Preferred: len(others) == 0,
		CreatedAt: s.now(),
	}
	e := &Enrollment{Method: m}
	if kind == domain.KindAuthenticator {
		raw, encoded, err := mfa.GenerateTOTPSecret()
		if err != nil {
			return nil, err
		}
		sealed, err := s.enc.Encrypt(raw)
		if err != nil {
			return nil, err
		}
		m.SecretEnc = sealed
		e.SecretBase32 = encoded
		e.ProvisionURI = mfa.ProvisionURI(s.issuer, s.accountLabel(ctx, userID), encoded)
	}
	if err := s.repo.CreateMethod(ctx, m); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete un-enrolls a factor. When the deleted factor was preferred and
// others remain, one of them becomes preferred; when it was the last factor,
// the user's recovery codes are deleted too.
func (s *Service) Delete(ctx context.Context, userID string, kind domain.Kind) error {
	m, err := s.repo.GetMethod(ctx, userID, kind)
	if err != nil {
		return err
	}
	if m == nil {
		return fault.New(fault.KindNotFound, "method not enrolled")
	}
	if err := s.repo.DeleteMethod(ctx, m.ID); err != nil {
		return err
	}
	remaining, err := s.repo.ListMethods(ctx, userID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return s.repo.DeleteRecoveryCodes(ctx, userID)
	}
	if m.Preferred {
		return s.repo.SetPreferred(ctx, userID, remaining[0].ID)
	}
	return nil
}

// SetPreferred marks the given kind as the factor to prompt first.
func (s *Service) SetPreferred(ctx context.Context, userID string, kind domain.Kind) error {
	m, err := s.repo.GetMethod(ctx, userID, kind)
	if err != nil {
		return err
	}
	if m == nil {
		return fault.New(fault.KindNotFound, "method not enrolled")
	}
	return s.repo.SetPreferred(ctx, userID, m.ID)
}

// Challenge issues a fresh email OTP and dispatches it to the user's primary
// address. Delivery is fire-and-forget: the OTP stays valid even if the email
// bounces.
func (s *Service) Challenge(ctx context.Context, userID string) error {
	m, err := s.repo.GetMethod(ctx, userID, domain.KindEmail)
	if err != nil {
		return err
	}
	if m == nil {
		return fault.New(fault.KindNotFound, "email method not enrolled")
	}
	code, err := mfa.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.repo.SetOTP(ctx, m.ID, mfa.HashOTP(code), s.now().Add(s.otpTTL)); err != nil {
		return err
	}
	if email, err := s.users.PrimaryEmail(ctx, userID); err == nil && email != nil {
		s.notify.Send(ctx, notify.TemplateEmailOTP, email.Address, map[string]string{"code": code})
	}
	return nil
}

// Verify checks a presented code for the given factor kind (or a recovery
// code) and, on success, promotes the pending bearer token in place. The
// token stays mfa-typed on failure so the user may retry until it expires.
func (s *Service) Verify(ctx context.Context, token *tokendomain.AccessToken, kind domain.Kind, code string) (*VerifyResult, error) {
	if token == nil || token.Type != tokendomain.TypeMFA {
		return nil, fault.New(fault.KindInvalidCredential, "token is not awaiting verification")
	}

	var err error
	switch kind {
	case domain.KindAuthenticator:
		err = s.verifyAuthenticator(ctx, token.UserID, code)
	case domain.KindEmail:
		err = s.verifyEmail(ctx, token.UserID, code)
	case domain.KindRecovery:
		err = s.verifyRecovery(ctx, token.UserID, code)
	default:
		err = fault.New(fault.KindInvalidCredential, "verification failed")
	}
	if err != nil {
		s.metrics.MFAFailure(ctx, string(kind))
		return nil, err
	}

	promoted, err := s.tokens.Promote(ctx, token)
	if err != nil {
		return nil, err
	}
	s.metrics.MFASuccess(ctx, string(kind))

	verified := false
	if email, err := s.users.PrimaryEmail(ctx, token.UserID); err == nil && email != nil {
		verified = email.Verified()
	}
	return &VerifyResult{Token: promoted, EmailVerified: verified}, nil
}

func (s *Service) verifyAuthenticator(ctx context.Context, userID, code string) error {
	m, err := s.repo.GetMethod(ctx, userID, domain.KindAuthenticator)
	if err != nil {
		return err
	}
	if m == nil {
		return fault.New(fault.KindInvalidCredential, "verification failed")
	}
	secret, err := s.enc.Decrypt(m.SecretEnc)
	if err != nil {
		return err
	}
	if !mfa.VerifyTOTP(secret, code, s.now()) {
		return fault.New(fault.KindInvalidCredential, "verification failed")
	}
	if err := s.repo.TouchLastUsed(ctx, m.ID, s.now()); err != nil {
		s.log.Warn("mfa last_used update failed", zap.String("method_id", m.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) verifyEmail(ctx context.Context, userID, code string) error {
	m, err := s.repo.GetMethod(ctx, userID, domain.KindEmail)
	if err != nil {
		return err
	}
	if m == nil || m.OTPDigest == "" {
		return fault.New(fault.KindInvalidCredential, "verification failed")
	}
	if m.OTPExpired(s.now()) {
		return fault.New(fault.KindExpired, "code expired")
	}
	if !mfa.OTPEqual(strings.TrimSpace(code), m.OTPDigest) {
		return fault.New(fault.KindInvalidCredential, "verification failed")
	}
	if err := s.repo.ClearOTP(ctx, m.ID); err != nil {
		return err
	}
	if err := s.repo.TouchLastUsed(ctx, m.ID, s.now()); err != nil {
		s.log.Warn("mfa last_used update failed", zap.String("method_id", m.ID), zap.Error(err))
	}
	return nil
}

// verifyRecovery consumes a single-use code. Deliberately does not touch any
// method's last_used.
func (s *Service) verifyRecovery(ctx context.Context, userID, code string) error {
	digest := security.DigestSecret(normalizeRecoveryCode(code))
	ok, err := s.repo.ConsumeRecoveryCode(ctx, userID, digest)
	if err != nil {
		return err
	}
	if !ok {
		return fault.New(fault.KindInvalidCredential, "verification failed")
	}
	return nil
}

// GenerateRecoveryCodes replaces the user's recovery codes with a fresh batch
// and returns the display forms. Plaintext codes are never retrievable again.
func (s *Service) GenerateRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	if err := s.repo.DeleteRecoveryCodes(ctx, userID); err != nil {
		return nil, err
	}
	now := s.now()
	display := make([]string, 0, recoveryCodeCount)
	records := make([]*domain.RecoveryCode, 0, recoveryCodeCount)
	for i := 0; i < recoveryCodeCount; i++ {
		code, err := newRecoveryCode()
		if err != nil {
			return nil, err
		}
		display = append(display, code[:recoveryCodeChars/2]+"-"+code[recoveryCodeChars/2:])
		records = append(records, &domain.RecoveryCode{
			ID:        uuid.NewString(),
			UserID:    userID,
			Digest:    security.DigestSecret(code),
			CreatedAt: now,
		})
	}
	if err := s.repo.AddRecoveryCodes(ctx, records); err != nil {
		return nil, err
	}
	return display, nil
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) accountLabel(ctx context.Context, userID string) string {
	if email, err := s.users.PrimaryEmail(ctx, userID); err == nil && email != nil {
		return email.Address
	}
	return userID
}

func newRecoveryCode() (string, error) {
	b := make([]byte, recoveryCodeChars)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = recoveryAlphabet[int(b[i])%len(recoveryAlphabet)]
	}
	return string(b), nil
}

// normalizeRecoveryCode uppercases and strips whitespace and hyphens, so
// "abcde-fghjk" and "ABCDE FGHJK" present the same code.
func normalizeRecoveryCode(code string) string {
	var sb strings.Builder
	for _, c := range strings.ToUpper(code) {
		switch c {
		case ' ', '\t', '\n', '\r', '-':
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
