package service

import (
	"bytes"
	"context"
	"encoding/base32"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"identity-plane/internal/audit"
	auditdomain "identity-plane/internal/audit/domain"
	auditrepo "identity-plane/internal/audit/repository"
	settingsrepo "identity-plane/internal/authsettings/repository"
	settingsservice "identity-plane/internal/authsettings/service"
	"identity-plane/internal/fault"
	identitydomain "identity-plane/internal/identity/domain"
	membershiprepo "identity-plane/internal/membership/repository"
	"identity-plane/internal/mfa"
	mfadomain "identity-plane/internal/mfa/domain"
	mfarepo "identity-plane/internal/mfa/repository"
	mfaservice "identity-plane/internal/mfa/service"
	"identity-plane/internal/notify"
	"identity-plane/internal/ratelimit"
	"identity-plane/internal/resolver"
	"identity-plane/internal/security"
	tenantdomain "identity-plane/internal/tenant/domain"
	tenantrepo "identity-plane/internal/tenant/repository"
	tokendomain "identity-plane/internal/token/domain"
	tokenrepo "identity-plane/internal/token/repository"
	tokenservice "identity-plane/internal/token/service"
	userdomain "identity-plane/internal/user/domain"
	userrepo "identity-plane/internal/user/repository"
)

type authFixture struct {
	svc         *Service
	users       *userrepo.MemoryRepository
	tokens      *tokenservice.Service
	mfa         *mfaservice.Service
	tenants     *tenantrepo.MemoryRepository
	memberships *membershiprepo.MemoryRepository
	settings    *settingsservice.Service
	attempts    *auditrepo.MemoryRepository
	sent        *notify.Recorder
}

func newAuthFixture(t *testing.T, opts Options) *authFixture {
	t.Helper()
	enc, err := security.NewEncryptor(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	signer, err := security.NewTestLinkSigner()
	if err != nil {
		t.Fatalf("NewTestLinkSigner: %v", err)
	}
	users := userrepo.NewMemoryRepository()
	tokens := tokenservice.NewService(tokenrepo.NewMemoryRepository(), 720*time.Hour, 10*time.Minute, nil, nil)
	sent := &notify.Recorder{}
	mfaSvc := mfaservice.NewService(mfarepo.NewMemoryRepository(), users, tokens, enc, sent,
		"idplane", 10*time.Minute, nil, nil, nil)
	tenants := tenantrepo.NewMemoryRepository()
	memberships := membershiprepo.NewMemoryRepository()
	settings := settingsservice.NewService(settingsrepo.NewMemoryRepository(), enc)
	attempts := auditrepo.NewMemoryRepository()

	f := &authFixture{
		users:       users,
		tokens:      tokens,
		mfa:         mfaSvc,
		tenants:     tenants,
		memberships: memberships,
		settings:    settings,
		attempts:    attempts,
		sent:        sent,
	}
	f.svc = NewService(Deps{
		Users:       users,
		Tokens:      tokens,
		MFA:         mfaSvc,
		Tenants:     tenants,
		Memberships: memberships,
		Resolver:    resolver.New(tenants),
		Settings:    settings,
		Hasher:      security.NewHasher(4),
		Links:       signer,
		Audit:       audit.NewRecorder(attempts, nil),
		Notify:      sent,
	}, opts)
	return f
}

// seedVerifiedTenant creates a tenant holding a verified custom domain.
func (f *authFixture) seedVerifiedTenant(t *testing.T, id, slug, domainName string) *tenantdomain.Tenant {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	tenant := &tenantdomain.Tenant{
		ID: id, OwnerID: "seed-owner", Slug: slug, Name: slug, ActivatedAt: &now, CreatedAt: now,
	}
	if err := f.tenants.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	v := now
	if err := f.tenants.CreateDomain(ctx, &tenantdomain.Domain{
		ID: id + "-d1", TenantID: id, Name: domainName, Type: tenantdomain.DomainTypeCustom,
		IsPrimary: true, VerifiedAt: &v, CreatedAt: now,
	}); err != nil {
		t.Fatalf("CreateDomain: %v", err)
	}
	return tenant
}

func TestRegister_CreatesOwnedTenant(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()

	res, err := f.svc.Register(ctx, "Alice@Example.com", "correct horse", "Alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !res.CreatedTenant || res.Tenant == nil {
		t.Fatal("expected a fresh tenant")
	}
	if res.Tenant.Slug != "alice" {
		t.Errorf("slug = %q, want alice", res.Tenant.Slug)
	}
	if res.Tenant.OwnerID != res.User.ID {
		t.Error("tenant not owned by the registering user")
	}
	if res.Membership == nil || !res.Membership.Active() || res.Membership.Role != "owner" {
		t.Errorf("membership = %+v, want active owner", res.Membership)
	}
	if !res.Email.IsPrimary || res.Email.Address != "alice@example.com" {
		t.Errorf("email = %+v, want normalized primary", res.Email)
	}
	if res.Email.Verified() {
		t.Error("freshly registered email must not be verified")
	}

	// same local part at another domain gets a deduped slug
	res2, err := f.svc.Register(ctx, "alice@other.org", "correct horse", "")
	if err != nil {
		t.Fatalf("Register second: %v", err)
	}
	if res2.Tenant.Slug != "alice-2" {
		t.Errorf("second slug = %q, want alice-2", res2.Tenant.Slug)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "a@example.com", "correct horse", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := f.svc.Register(ctx, "A@EXAMPLE.COM", "another pass", "")
	if !fault.IsKind(err, fault.KindAlreadyExists) {
		t.Errorf("duplicate register err = %v, want already_exists", err)
	}
}

func TestRegister_AutoJoinsVerifiedDomainTenant(t *testing.T) {
	f := newAuthFixture(t, Options{})
	tenant := f.seedVerifiedTenant(t, "t1", "acme", "acme.com")

	res, err := f.svc.Register(context.Background(), "bob@acme.com", "correct horse", "Bob")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.CreatedTenant {
		t.Error("expected auto-join, got a fresh tenant")
	}
	if res.Tenant == nil || res.Tenant.ID != tenant.ID {
		t.Fatalf("tenant = %+v, want %s", res.Tenant, tenant.ID)
	}
	if res.Membership.Role != "member" || !res.Membership.Active() {
		t.Errorf("membership = %+v, want active member", res.Membership)
	}
}

func TestLogin_IssuesLoginToken(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "a@example.com", "correct horse", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	fp := auditdomain.Fingerprint{Browser: "firefox", Platform: "linux", IP: "10.0.0.1"}
	res, err := f.svc.Login(ctx, "a@example.com", "correct horse", fp)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.MFARequired {
		t.Error("MFARequired without enrolled factors")
	}
	tok, err := f.tokens.Classify(ctx, res.Credential)
	if err != nil {
		t.Fatalf("Classify issued credential: %v", err)
	}
	if tok.Type != tokendomain.TypeLogin {
		t.Errorf("token type = %s, want login", tok.Type)
	}
	if tok.LoginAttemptID == "" || tok.LoginAttemptID != res.AttemptID {
		t.Error("token not correlated with its login attempt")
	}

	attempts, err := f.attempts.ListByUser(ctx, tok.UserID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(attempts) != 1 || !attempts[0].Success || attempts[0].Suspicious {
		t.Errorf("attempts = %+v, want one clean success", attempts)
	}
	if attempts[0].Fingerprint.Browser != "firefox" {
		t.Error("fingerprint not recorded")
	}
}

func TestLogin_UniformFailures(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "a@example.com", "correct horse", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.users.SetActive(ctx, reg.User.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "correct horse"},
		{"wrong password", "a@example.com", "wrong"},
		{"inactive user", "a@example.com", "correct horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tt.email, tt.password, auditdomain.Fingerprint{})
			if !fault.IsKind(err, fault.KindInvalidCredential) {
				t.Errorf("err = %v, want invalid_credential", err)
			}
		})
	}

	attempts, err := f.attempts.ListByUser(ctx, reg.User.ID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(attempts) != 2 {
		t.Errorf("recorded %d attempts for the known user, want 2", len(attempts))
	}
	for _, a := range attempts {
		if a.Success {
			t.Error("failed login recorded as success")
		}
	}
}

func TestLogin_MFAGateAndConfirm(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "a@example.com", "correct horse", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	enr, err := f.mfa.Add(ctx, reg.User.ID, mfadomain.KindAuthenticator)
	if err != nil {
		t.Fatalf("Add factor: %v", err)
	}
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(enr.SecretBase32)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}

	res, err := f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.MFARequired || res.Token.Type != tokendomain.TypeMFA {
		t.Fatalf("result = %+v, want pending mfa token", res)
	}
	if err := f.tokens.Authorize(res.Token, "tenant.read"); !fault.IsKind(err, fault.KindMFARequired) {
		t.Errorf("Authorize before confirm err = %v, want mfa_required", err)
	}

	_, err = f.svc.ConfirmMFA(ctx, res.Credential, mfadomain.KindAuthenticator, "000000")
	if !fault.IsKind(err, fault.KindInvalidCredential) {
		t.Fatalf("wrong code err = %v, want invalid_credential", err)
	}

	verified, err := f.svc.ConfirmMFA(ctx, res.Credential, mfadomain.KindAuthenticator, mfa.CodeAt(secret, time.Now().UTC()))
	if err != nil {
		t.Fatalf("ConfirmMFA: %v", err)
	}
	if verified.Token.Type != tokendomain.TypeLogin {
		t.Errorf("promoted type = %s, want login", verified.Token.Type)
	}
	// the credential string the client already holds is now fully authorized
	tok, err := f.tokens.Classify(ctx, res.Credential)
	if err != nil {
		t.Fatalf("Classify after confirm: %v", err)
	}
	if err := f.tokens.Authorize(tok, "tenant.read"); err != nil {
		t.Errorf("Authorize after confirm: %v", err)
	}
}

func TestLogin_FlagsUnknownFingerprint(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "a@example.com", "correct horse", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	known := auditdomain.Fingerprint{Browser: "firefox", Platform: "linux", Device: "laptop"}
	if _, err := f.svc.Login(ctx, "a@example.com", "correct horse", known); err != nil {
		t.Fatalf("first login: %v", err)
	}
	other := auditdomain.Fingerprint{Browser: "safari", Platform: "ios", Device: "phone"}
	if _, err := f.svc.Login(ctx, "a@example.com", "correct horse", other); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@example.com", "correct horse", known); err != nil {
		t.Fatalf("third login: %v", err)
	}

	attempts, err := f.attempts.ListByUser(ctx, reg.User.ID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(attempts))
	}
	// newest first: known again, unknown, first ever
	if attempts[0].Suspicious {
		t.Error("known fingerprint flagged suspicious")
	}
	if !attempts[1].Suspicious {
		t.Error("unknown fingerprint not flagged")
	}
	if attempts[2].Suspicious {
		t.Error("first-ever login flagged suspicious")
	}
}

func TestLogin_PasswordAgePolicy(t *testing.T) {
	f := newAuthFixture(t, Options{
		PasswordPolicy: userdomain.AgePolicy{Soft: 30 * 24 * time.Hour, Hard: 90 * 24 * time.Hour},
	})
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "a@example.com", "correct horse", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	f.svc.WithClock(func() time.Time { return time.Now().UTC().Add(40 * 24 * time.Hour) })
	res, err := f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{})
	if err != nil {
		t.Fatalf("Login within soft window: %v", err)
	}
	if res.PasswordWarning == "" {
		t.Error("expected a stale-password warning")
	}

	f.svc.WithClock(func() time.Time { return time.Now().UTC().Add(100 * 24 * time.Hour) })
	_, err = f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{})
	if !fault.IsKind(err, fault.KindPermissionDenied) {
		t.Errorf("expired password err = %v, want permission_denied", err)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newAuthFixture(t, Options{})
	f.svc.limiter = ratelimit.New(client, ratelimit.Config{MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "a@example.com", "correct horse", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Login(ctx, "a@example.com", "wrong", auditdomain.Fingerprint{}); !fault.IsKind(err, fault.KindInvalidCredential) {
			t.Fatalf("failure %d err = %v, want invalid_credential", i, err)
		}
	}
	// window exhausted: even the right password is refused before checking
	_, err := f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{})
	if !fault.IsKind(err, fault.KindRateLimited) {
		t.Fatalf("err = %v, want rate_limited", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{}); err != nil {
		t.Fatalf("Login after window: %v", err)
	}
	// success clears the counter
	if err := f.svc.limiter.Check(ctx, "login", "a@example.com"); err != nil {
		t.Errorf("Check after success: %v", err)
	}
}

func TestMagicLink_RoundTrip(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "a@example.com", "correct horse", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := f.svc.LoginWithMagicLink(ctx, "A@example.com"); err != nil {
		t.Fatalf("LoginWithMagicLink: %v", err)
	}
	if len(f.sent.Sent) != 1 || f.sent.Sent[0].TemplateID != notify.TemplateMagicLink {
		t.Fatalf("sent = %+v, want one magic_link", f.sent.Sent)
	}
	link := f.sent.Sent[0].Data["link"]
	if link == "" {
		t.Fatal("dispatched notification carries no link")
	}

	res, err := f.svc.RedeemMagicLink(ctx, link, auditdomain.Fingerprint{})
	if err != nil {
		t.Fatalf("RedeemMagicLink: %v", err)
	}
	if res.MFARequired {
		t.Error("MFARequired without enrolled factors")
	}
	// possession of the link proves mailbox control
	if !res.EmailVerified {
		t.Error("redeemed email not marked verified")
	}
	row, err := f.users.GetEmailByAddress(ctx, "a@example.com")
	if err != nil || row == nil || !row.Verified() {
		t.Errorf("stored email = %+v, err = %v, want verified", row, err)
	}

	if _, err := f.svc.RedeemMagicLink(ctx, link+"x", auditdomain.Fingerprint{}); !fault.IsKind(err, fault.KindInvalidCredential) {
		t.Errorf("tampered link err = %v, want invalid_credential", err)
	}
}

func TestMagicLink_UnknownAddressSilent(t *testing.T) {
	f := newAuthFixture(t, Options{})
	if err := f.svc.LoginWithMagicLink(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("LoginWithMagicLink: %v", err)
	}
	if len(f.sent.Sent) != 0 {
		t.Errorf("sent = %+v, want nothing for unknown address", f.sent.Sent)
	}
}

func TestEmailVerification_RoundTrip(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "a@example.com", "correct horse", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := f.svc.RequestEmailVerification(ctx, "a@example.com"); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}
	if len(f.sent.Sent) != 1 || f.sent.Sent[0].TemplateID != notify.TemplateEmailOTP {
		t.Fatalf("sent = %+v, want one email_otp", f.sent.Sent)
	}
	code := f.sent.Sent[0].Data["code"]

	if err := f.svc.ConfirmEmail(ctx, "a@example.com", "000000"); !fault.IsKind(err, fault.KindInvalidCredential) {
		t.Errorf("wrong code err = %v, want invalid_credential", err)
	}
	if err := f.svc.ConfirmEmail(ctx, "a@example.com", code); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	row, err := f.users.GetEmailByAddress(ctx, "a@example.com")
	if err != nil || row == nil || !row.Verified() {
		t.Fatalf("email = %+v, err = %v, want verified", row, err)
	}
	// the code is cleared on success and cannot be replayed
	if err := f.svc.ConfirmEmail(ctx, "a@example.com", code); !fault.IsKind(err, fault.KindInvalidCredential) {
		t.Errorf("replay err = %v, want invalid_credential", err)
	}

	// verified addresses are not re-challenged
	f.sent.Sent = nil
	if err := f.svc.RequestEmailVerification(ctx, "a@example.com"); err != nil {
		t.Fatalf("RequestEmailVerification verified: %v", err)
	}
	if len(f.sent.Sent) != 0 {
		t.Errorf("sent = %+v, want nothing for a verified address", f.sent.Sent)
	}
}

func TestConfirmEmail_ExpiredCode(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "a@example.com", "correct horse", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.svc.RequestEmailVerification(ctx, "a@example.com"); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}
	code := f.sent.Sent[0].Data["code"]

	f.svc.WithClock(func() time.Time { return time.Now().UTC().Add(time.Hour) })
	if err := f.svc.ConfirmEmail(ctx, "a@example.com", code); !fault.IsKind(err, fault.KindExpired) {
		t.Errorf("stale code err = %v, want expired", err)
	}
}

func TestLoginExternal_ProvisionsAndAutoJoins(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	tenant := f.seedVerifiedTenant(t, "t1", "acme", "acme.com")
	err := f.settings.ConfigureSSO(ctx, tenant.ID, "okta", "client", "secret", "", nil, true, "admin")
	if err != nil {
		t.Fatalf("ConfigureSSO: %v", err)
	}

	res, err := f.svc.LoginExternal(ctx, identitydomain.ExternalIdentity{
		Provider:       identitydomain.ProviderOkta,
		ProviderUserID: "okta|1",
		Email:          "carol@acme.com",
		Name:           "Carol",
		EmailVerified:  true,
	}, auditdomain.Fingerprint{})
	if err != nil {
		t.Fatalf("LoginExternal: %v", err)
	}
	if !res.EmailVerified {
		t.Error("provider-verified email not marked verified")
	}
	tok, err := f.tokens.Classify(ctx, res.Credential)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	m, err := f.memberships.GetMembership(ctx, tok.UserID, tenant.ID)
	if err != nil {
		t.Fatalf("GetMembership: %v", err)
	}
	if m == nil || !m.Active() || m.Role != "admin" {
		t.Errorf("membership = %+v, want active admin via auto-provision", m)
	}

	// second login reuses the provisioned account
	res2, err := f.svc.LoginExternal(ctx, identitydomain.ExternalIdentity{
		Provider: identitydomain.ProviderOkta, Email: "carol@acme.com", EmailVerified: true,
	}, auditdomain.Fingerprint{})
	if err != nil {
		t.Fatalf("second LoginExternal: %v", err)
	}
	tok2, err := f.tokens.Classify(ctx, res2.Credential)
	if err != nil {
		t.Fatalf("Classify second: %v", err)
	}
	if tok2.UserID != tok.UserID {
		t.Error("second external login created a second account")
	}
}

func TestLoginExternal_NoTrustedTenant(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()

	res, err := f.svc.LoginExternal(ctx, identitydomain.ExternalIdentity{
		Provider: identitydomain.ProviderGoogle, Email: "dave@gmail.com", EmailVerified: true,
	}, auditdomain.Fingerprint{})
	if err != nil {
		t.Fatalf("LoginExternal: %v", err)
	}
	tok, err := f.tokens.Classify(ctx, res.Credential)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	ms, err := f.memberships.ListByUser(ctx, tok.UserID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(ms) != 0 {
		t.Errorf("memberships = %+v, want none without a trusted tenant", ms)
	}
}

func TestLogoutFlows(t *testing.T) {
	f := newAuthFixture(t, Options{})
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "a@example.com", "correct horse", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.svc.Logout(ctx, res.Credential); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.tokens.Classify(ctx, res.Credential); !fault.IsKind(err, fault.KindInvalidCredential) {
		t.Errorf("Classify after logout err = %v, want invalid_credential", err)
	}
	if err := f.svc.Logout(ctx, "not-a-token"); err != nil {
		t.Errorf("Logout with garbage credential: %v", err)
	}

	// logout-all revokes login tokens but leaves delegated api tokens alone
	first, _ := f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{})
	second, _ := f.svc.Login(ctx, "a@example.com", "correct horse", auditdomain.Fingerprint{})
	apiCred, _, err := f.tokens.Issue(ctx, reg.User.ID, tokendomain.TypeAPI, 0, []string{"tenant.read"}, "")
	if err != nil {
		t.Fatalf("Issue api token: %v", err)
	}
	if err := f.svc.LogoutAll(ctx, reg.User.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	for _, cred := range []string{first.Credential, second.Credential} {
		if _, err := f.tokens.Classify(ctx, cred); !fault.IsKind(err, fault.KindInvalidCredential) {
			t.Errorf("login token survived logout-all: %v", err)
		}
	}
	if _, err := f.tokens.Classify(ctx, apiCred); err != nil {
		t.Errorf("api token revoked by logout-all: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"Alice.Smith", "alice-smith"},
		{"a+b_c", "a-b-c"},
		{"--", ""},
		{"über", "ber"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
