// Package service orchestrates registration, login, second-factor
// confirmation, logout, magic links, and external identity login. It owns no
// state of its own: it sequences the user, token, mfa, tenant, and membership
// collaborators and keeps every failure on the credential path uniform.
package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-plane/internal/audit"
	auditdomain "identity-plane/internal/audit/domain"
	settingsservice "identity-plane/internal/authsettings/service"
	"identity-plane/internal/fault"
	"identity-plane/internal/identity/domain"
	membershipdomain "identity-plane/internal/membership/domain"
	membershiprepo "identity-plane/internal/membership/repository"
	"identity-plane/internal/mfa"
	mfadomain "identity-plane/internal/mfa/domain"
	mfaservice "identity-plane/internal/mfa/service"
	"identity-plane/internal/notify"
	"identity-plane/internal/ratelimit"
	"identity-plane/internal/resolver"
	"identity-plane/internal/security"
	"identity-plane/internal/telemetry"
	tenantdomain "identity-plane/internal/tenant/domain"
	tenantrepo "identity-plane/internal/tenant/repository"
	tokendomain "identity-plane/internal/token/domain"
	tokenservice "identity-plane/internal/token/service"
	userdomain "identity-plane/internal/user/domain"
	userrepo "identity-plane/internal/user/repository"
)

// Rate limiter scopes, one window per identifier and operation.
const (
	scopeRegister  = "register"
	scopeLogin     = "login"
	scopeMagicLink = "magic_link"
	scopeMFA       = "mfa"
)

const minPasswordLength = 8

// Deps wires the collaborators of the auth service. Limiter, Audit, Notify,
// Metrics, and Log may be nil; Settings may be nil when external login is
// unused.
type Deps struct {
	Users       userrepo.Repository
	Tokens      *tokenservice.Service
	MFA         *mfaservice.Service
	Tenants     tenantrepo.Repository
	Memberships membershiprepo.Repository
	Resolver    *resolver.Resolver
	Settings    *settingsservice.Service
	Hasher      *security.Hasher
	Links       *security.LinkSigner
	Limiter     *ratelimit.Limiter
	Audit       *audit.Recorder
	Notify      notify.Dispatcher
	Metrics     *telemetry.Metrics
	Log         *zap.Logger
}

// Options tunes the auth service.
type Options struct {
	LoginTTL     time.Duration
	MagicLinkTTL time.Duration
	EmailOTPTTL  time.Duration
	// PasswordPolicy warns or blocks stale passwords at login. Zero disables.
	PasswordPolicy userdomain.AgePolicy
	// DisableTenantCreation stops registration from creating a personal
	// tenant when no verified domain claims the email.
	DisableTenantCreation bool
}

// RegisterResult is the outcome of a registration: the new principal and the
// tenant it landed in. CreatedTenant distinguishes a fresh personal tenant
// from an auto-join into an existing one.
type RegisterResult struct {
	User          *userdomain.User
	Email         *userdomain.Email
	Tenant        *tenantdomain.Tenant
	Membership    *membershipdomain.Membership
	CreatedTenant bool
}

// LoginResult is a successful authentication. Credential is the plaintext
// bearer the client presents from now on; when MFARequired it only authorizes
// factor verification until confirmed.
type LoginResult struct {
	Credential      string
	Token           *tokendomain.AccessToken
	MFARequired     bool
	EmailVerified   bool
	PasswordWarning string
	AttemptID       string
}

// Service sequences authentication flows over the domain services.
type Service struct {
	users       userrepo.Repository
	tokens      *tokenservice.Service
	mfa         *mfaservice.Service
	tenants     tenantrepo.Repository
	memberships membershiprepo.Repository
	resolver    *resolver.Resolver
	settings    *settingsservice.Service
	hasher      *security.Hasher
	links       *security.LinkSigner
	limiter     *ratelimit.Limiter
	audit       *audit.Recorder
	notify      notify.Dispatcher
	metrics     *telemetry.Metrics
	log         *zap.Logger
	opts        Options
	now         func() time.Time
}

// NewService returns an auth service over deps.
func NewService(deps Deps, opts Options) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	dispatcher := deps.Notify
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher(log)
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.New(nil, ratelimit.Config{})
	}
	if opts.LoginTTL <= 0 {
		opts.LoginTTL = 720 * time.Hour
	}
	if opts.MagicLinkTTL <= 0 {
		opts.MagicLinkTTL = 15 * time.Minute
	}
	if opts.EmailOTPTTL <= 0 {
		opts.EmailOTPTTL = 10 * time.Minute
	}
	return &Service{
		users:       deps.Users,
		tokens:      deps.Tokens,
		mfa:         deps.MFA,
		tenants:     deps.Tenants,
		memberships: deps.Memberships,
		resolver:    deps.Resolver,
		settings:    deps.Settings,
		hasher:      deps.Hasher,
		links:       deps.Links,
		limiter:     limiter,
		audit:       deps.Audit,
		notify:      dispatcher,
		metrics:     deps.Metrics,
		log:         log,
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a principal with a primary email and password, then places
// it in a tenant: when the email's domain belongs to a tenant that proved
// domain ownership the user joins it directly, otherwise a new tenant owned
// by the user is created with a slug derived from the email's local part.
// A known email address fails with already_exists.
func (s *Service) Register(ctx context.Context, email, password, name string) (*RegisterResult, error) {
	email = normalizeEmail(email)
	if err := s.limiter.Check(ctx, scopeRegister, email); err != nil {
		return nil, err
	}
	if !strings.Contains(email, "@") {
		return nil, fault.New(fault.KindInvalidCredential, "invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, fault.New(fault.KindInvalidCredential, "password too short")
	}
	existing, err := s.users.GetEmailByAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fault.New(fault.KindAlreadyExists, "email already registered")
	}

	now := s.now()
	user := &userdomain.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	emailRow := &userdomain.Email{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Address:   email,
		IsPrimary: true,
		CreatedAt: now,
	}
	if err := s.users.AddEmail(ctx, emailRow); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	if err := s.users.AddPassword(ctx, &userdomain.Password{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Digest:    digest,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	tenant, membership, created, err := s.placeInTenant(ctx, user, emailRow)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.Bool("created_tenant", created),
	)
	return &RegisterResult{
		User:          user,
		Email:         emailRow,
		Tenant:        tenant,
		Membership:    membership,
		CreatedTenant: created,
	}, nil
}

// placeInTenant joins the user to the tenant holding a verified domain
// matching the email's domain, or creates a personal tenant.
func (s *Service) placeInTenant(ctx context.Context, user *userdomain.User, email *userdomain.Email) (*tenantdomain.Tenant, *membershipdomain.Membership, bool, error) {
	tenant, err := s.resolver.ResolveByHost(ctx, email.Domain())
	if err != nil {
		return nil, nil, false, err
	}
	if tenant != nil {
		m, err := s.join(ctx, user.ID, tenant.ID, membershipdomain.RoleMember)
		if err != nil {
			return nil, nil, false, err
		}
		return tenant, m, false, nil
	}
	if s.opts.DisableTenantCreation {
		return nil, nil, false, nil
	}
	now := s.now()
	tenant = &tenantdomain.Tenant{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Slug:        "",
		Name:        user.Name,
		ActivatedAt: &now,
		CreatedAt:   now,
	}
	slug, err := s.uniqueSlug(ctx, localPart(email.Address))
	if err != nil {
		return nil, nil, false, err
	}
	tenant.Slug = slug
	if tenant.Name == "" {
		tenant.Name = slug
	}
	if err := s.tenants.CreateTenant(ctx, tenant); err != nil {
		return nil, nil, false, err
	}
	m, err := s.join(ctx, user.ID, tenant.ID, membershipdomain.RoleOwner)
	if err != nil {
		return nil, nil, false, err
	}
	return tenant, m, true, nil
}

func (s *Service) join(ctx context.Context, userID, tenantID string, role membershipdomain.Role) (*membershipdomain.Membership, error) {
	m := &membershipdomain.Membership{
		ID:        uuid.NewString(),
		UserID:    userID,
		TenantID:  tenantID,
		Role:      role,
		Joined:    true,
		CreatedAt: s.now(),
	}
	if err := s.memberships.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Login authenticates an email/password pair. Unknown email, inactive user,
// and wrong password all fail with the same invalid-credential fault. Every
// attempt is recorded; a success from a fingerprint the user never logged in
// from before is flagged suspicious. When the user has a second factor
// enrolled the issued token only authorizes factor verification.
func (s *Service) Login(ctx context.Context, email, password string, fp auditdomain.Fingerprint) (*LoginResult, error) {
	email = normalizeEmail(email)
	if err := s.limiter.Check(ctx, scopeLogin, email); err != nil {
		return nil, err
	}
	emailRow, err := s.users.GetEmailByAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	if emailRow == nil {
		return nil, s.failLogin(ctx, "", email, auditdomain.MethodPassword, fp)
	}
	user, err := s.users.GetUser(ctx, emailRow.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, s.failLogin(ctx, emailRow.UserID, email, auditdomain.MethodPassword, fp)
	}
	pw, err := s.users.LatestPassword(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if pw == nil || s.hasher.Compare(pw.Digest, []byte(password)) != nil {
		return nil, s.failLogin(ctx, user.ID, email, auditdomain.MethodPassword, fp)
	}

	now := s.now()
	age := userdomain.EvaluatePasswordAge(now, pw.CreatedAt, s.opts.PasswordPolicy)
	if age.State == userdomain.AgeBlock {
		s.audit.Record(ctx, user.ID, email, auditdomain.MethodPassword, fp, false, false)
		return nil, fault.New(fault.KindPermissionDenied, age.Message)
	}

	res, err := s.issueFor(ctx, user, emailRow, auditdomain.MethodPassword, fp)
	if err != nil {
		return nil, err
	}
	if age.State == userdomain.AgeWarn {
		res.PasswordWarning = age.Message
	}
	if err := s.limiter.Reset(ctx, scopeLogin, email); err != nil {
		s.log.Warn("rate limiter reset failed", zap.Error(err))
	}
	return res, nil
}

// failLogin records the failed attempt, counts it against the limiter, and
// returns the uniform invalid-credential fault.
func (s *Service) failLogin(ctx context.Context, userID, email string, method auditdomain.Method, fp auditdomain.Fingerprint) error {
	s.audit.Record(ctx, userID, email, method, fp, false, false)
	s.metrics.LoginFailure(ctx, string(method))
	if err := s.limiter.RecordFailure(ctx, scopeLogin, email); err != nil && !fault.IsKind(err, fault.KindRateLimited) {
		s.log.Warn("rate limiter record failed", zap.Error(err))
	}
	return fault.New(fault.KindInvalidCredential, "invalid credentials")
}

// issueFor records the successful attempt and issues the bearer: an mfa token
// when any second factor is enrolled, a login token otherwise.
func (s *Service) issueFor(ctx context.Context, user *userdomain.User, email *userdomain.Email, method auditdomain.Method, fp auditdomain.Fingerprint) (*LoginResult, error) {
	suspicious := s.audit.Suspicious(ctx, user.ID, fp)
	attemptID := s.audit.Record(ctx, user.ID, email.Address, method, fp, true, suspicious)

	enrolled, err := s.mfa.Enrolled(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	typ := tokendomain.TypeLogin
	if enrolled {
		typ = tokendomain.TypeMFA
	}
	credential, token, err := s.tokens.Issue(ctx, user.ID, typ, s.opts.LoginTTL, nil, attemptID)
	if err != nil {
		return nil, err
	}
	s.metrics.LoginSuccess(ctx, string(method))
	if suspicious {
		s.log.Info("login from unknown fingerprint",
			zap.String("user_id", user.ID),
			zap.String("method", string(method)),
		)
	}
	return &LoginResult{
		Credential:    credential,
		Token:         token,
		MFARequired:   enrolled,
		EmailVerified: email.Verified(),
		AttemptID:     attemptID,
	}, nil
}

// ConfirmMFA verifies a second-factor code against the presented mfa bearer
// and promotes it in place: the same credential string becomes a full login
// token. The promoted token is returned; the client keeps its credential.
func (s *Service) ConfirmMFA(ctx context.Context, presented string, kind mfadomain.Kind, code string) (*mfaservice.VerifyResult, error) {
	token, err := s.tokens.Classify(ctx, presented)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Check(ctx, scopeMFA, token.UserID); err != nil {
		return nil, err
	}
	res, err := s.mfa.Verify(ctx, token, kind, code)
	if err != nil {
		s.audit.Record(ctx, token.UserID, "", auditdomain.MethodMFA, auditdomain.Fingerprint{}, false, false)
		if lerr := s.limiter.RecordFailure(ctx, scopeMFA, token.UserID); lerr != nil && !fault.IsKind(lerr, fault.KindRateLimited) {
			s.log.Warn("rate limiter record failed", zap.Error(lerr))
		}
		return nil, err
	}
	s.audit.Record(ctx, token.UserID, "", auditdomain.MethodMFA, auditdomain.Fingerprint{}, true, false)
	if err := s.limiter.Reset(ctx, scopeMFA, token.UserID); err != nil {
		s.log.Warn("rate limiter reset failed", zap.Error(err))
	}
	return res, nil
}

// Logout revokes the presented bearer. An unknown or expired credential is a
// no-op: the client's goal state is already true.
func (s *Service) Logout(ctx context.Context, presented string) error {
	token, err := s.tokens.Classify(ctx, presented)
	if err != nil {
		if fault.IsKind(err, fault.KindInvalidCredential) || fault.IsKind(err, fault.KindExpired) {
			return nil
		}
		return err
	}
	return s.tokens.Revoke(ctx, token.ID)
}

// LogoutAll revokes every login token of the user. Api tokens survive.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.tokens.RevokeAll(ctx, userID)
}

// LoginWithMagicLink sends a signed passwordless login link to the address.
// Unknown addresses are not revealed: the call succeeds without sending.
func (s *Service) LoginWithMagicLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.limiter.Check(ctx, scopeMagicLink, email); err != nil {
		return err
	}
	emailRow, err := s.users.GetEmailByAddress(ctx, email)
	if err != nil {
		return err
	}
	if emailRow == nil {
		s.log.Debug("magic link requested for unknown address")
		return nil
	}
	link, err := s.links.Issue(security.LinkPurposeMagicLogin, email, "", s.opts.MagicLinkTTL)
	if err != nil {
		return err
	}
	s.notify.Send(ctx, notify.TemplateMagicLink, email, map[string]string{"link": link})
	return nil
}

// RedeemMagicLink exchanges a magic login link for a bearer. Possession of
// the link proves control of the mailbox, so the email is marked verified.
// The MFA gate applies the same as for password login.
func (s *Service) RedeemMagicLink(ctx context.Context, link string, fp auditdomain.Fingerprint) (*LoginResult, error) {
	claims, err := s.links.Validate(link, security.LinkPurposeMagicLogin)
	if err != nil {
		return nil, fault.Wrap(fault.KindInvalidCredential, "invalid magic link", err)
	}
	emailRow, err := s.users.GetEmailByAddress(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if emailRow == nil {
		return nil, fault.New(fault.KindInvalidCredential, "invalid magic link")
	}
	user, err := s.users.GetUser(ctx, emailRow.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		s.audit.Record(ctx, emailRow.UserID, emailRow.Address, auditdomain.MethodMagicLink, fp, false, false)
		return nil, fault.New(fault.KindInvalidCredential, "invalid magic link")
	}
	if !emailRow.Verified() {
		now := s.now()
		if err := s.users.MarkEmailVerified(ctx, emailRow.ID, now); err != nil {
			return nil, err
		}
		emailRow.VerifiedAt = &now
	}
	res, err := s.issueFor(ctx, user, emailRow, auditdomain.MethodMagicLink, fp)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Reset(ctx, scopeMagicLink, emailRow.Address); err != nil {
		s.log.Warn("rate limiter reset failed", zap.Error(err))
	}
	return res, nil
}

// RequestEmailVerification emails a one-time code to the address so its
// owner can prove control. Already-verified and unknown addresses succeed
// silently.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	emailRow, err := s.users.GetEmailByAddress(ctx, email)
	if err != nil {
		return err
	}
	if emailRow == nil || emailRow.Verified() {
		return nil
	}
	code, err := mfa.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.users.SetEmailOTP(ctx, emailRow.ID, mfa.HashOTP(code), s.now().Add(s.opts.EmailOTPTTL)); err != nil {
		return err
	}
	s.notify.Send(ctx, notify.TemplateEmailOTP, email, map[string]string{"code": code})
	return nil
}

// ConfirmEmail marks the address verified when the presented code matches
// the one last sent and is still within its window.
func (s *Service) ConfirmEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	emailRow, err := s.users.GetEmailByAddress(ctx, email)
	if err != nil {
		return err
	}
	if emailRow == nil || emailRow.OTPDigest == "" {
		return fault.New(fault.KindInvalidCredential, "verification failed")
	}
	now := s.now()
	if emailRow.OTPExpiresAt != nil && !now.Before(*emailRow.OTPExpiresAt) {
		return fault.New(fault.KindExpired, "code expired")
	}
	if !mfa.OTPEqual(strings.TrimSpace(code), emailRow.OTPDigest) {
		return fault.New(fault.KindInvalidCredential, "verification failed")
	}
	if err := s.users.ClearEmailOTP(ctx, emailRow.ID); err != nil {
		return err
	}
	return s.users.MarkEmailVerified(ctx, emailRow.ID, now)
}

// LoginExternal signs in a principal asserted by an external provider,
// provisioning the account on first sight. A provider-verified email counts
// as verified here. When the email's domain resolves to a tenant that allows
// auto-provisioning, the new user joins it with the configured role.
func (s *Service) LoginExternal(ctx context.Context, ident domain.ExternalIdentity, fp auditdomain.Fingerprint) (*LoginResult, error) {
	email := normalizeEmail(ident.Email)
	if email == "" {
		return nil, fault.New(fault.KindInvalidCredential, "external identity carries no email")
	}
	emailRow, err := s.users.GetEmailByAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	var user *userdomain.User
	switch {
	case emailRow != nil:
		user, err = s.users.GetUser(ctx, emailRow.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil || !user.Active {
			s.audit.Record(ctx, emailRow.UserID, email, auditdomain.MethodExternal, fp, false, false)
			return nil, fault.New(fault.KindInvalidCredential, "invalid credentials")
		}
	default:
		user, emailRow, err = s.provisionExternal(ctx, ident, email)
		if err != nil {
			return nil, err
		}
	}
	if ident.EmailVerified && !emailRow.Verified() {
		now := s.now()
		if err := s.users.MarkEmailVerified(ctx, emailRow.ID, now); err != nil {
			return nil, err
		}
		emailRow.VerifiedAt = &now
	}
	return s.issueFor(ctx, user, emailRow, auditdomain.MethodExternal, fp)
}

// provisionExternal creates the principal for a first external login and, if
// the email's domain belongs to a tenant with auto-provisioning enabled,
// joins it with the tenant's configured role.
func (s *Service) provisionExternal(ctx context.Context, ident domain.ExternalIdentity, email string) (*userdomain.User, *userdomain.Email, error) {
	now := s.now()
	user := &userdomain.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(ident.Name),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}
	emailRow := &userdomain.Email{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Address:   email,
		IsPrimary: true,
		CreatedAt: now,
	}
	if err := s.users.AddEmail(ctx, emailRow); err != nil {
		return nil, nil, err
	}

	tenant, err := s.resolver.ResolveByHost(ctx, emailRow.Domain())
	if err != nil {
		return nil, nil, err
	}
	if tenant != nil && s.settings != nil {
		st, err := s.settings.Get(ctx, tenant.ID)
		if err != nil {
			return nil, nil, err
		}
		if st.AutoProvision {
			role := membershipdomain.Role(st.AutoProvisionRole)
			if role == "" {
				role = membershipdomain.RoleMember
			}
			if _, err := s.join(ctx, user.ID, tenant.ID, role); err != nil {
				return nil, nil, err
			}
		}
	}
	s.log.Info("external identity provisioned",
		zap.String("user_id", user.ID),
		zap.String("provider", string(ident.Provider)),
	)
	return user, emailRow, nil
}

// uniqueSlug derives a tenant slug from the email local part, suffixing on
// collision.
func (s *Service) uniqueSlug(ctx context.Context, base string) (string, error) {
	base = slugify(base)
	if base == "" {
		base = "team"
	}
	candidate := base
	for i := 2; i <= 10; i++ {
		existing, err := s.tenants.GetTenantBySlug(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func localPart(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	return email[:at]
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
