// Package service implements the membership state machine between users and
// tenants: join requests, invitations, activation under domain enforcement,
// and ownership transfer.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-plane/internal/fault"
	"identity-plane/internal/membership/domain"
	"identity-plane/internal/membership/repository"
	"identity-plane/internal/notify"
	"identity-plane/internal/security"
	tenantdomain "identity-plane/internal/tenant/domain"
	tenantrepo "identity-plane/internal/tenant/repository"
	userrepo "identity-plane/internal/user/repository"
)

// InviteResult is the outcome of an invitation: a pending membership when the
// email belongs to an existing account, or an invitation with a signed
// registration link otherwise.
type InviteResult struct {
	Membership *domain.Membership
	Invitation *domain.TeamInvitation
	Link       string
}

// Service manages the (user, tenant) relation lifecycle.
type Service struct {
	repo      repository.Repository
	tenants   tenantrepo.Repository
	users     userrepo.Repository
	links     *security.LinkSigner
	notify    notify.Dispatcher
	log       *zap.Logger
	inviteTTL time.Duration
	now       func() time.Time
}

// NewService returns a membership service. inviteTTL bounds team invitations.
func NewService(repo repository.Repository, tenants tenantrepo.Repository, users userrepo.Repository,
	links *security.LinkSigner, dispatcher notify.Dispatcher, inviteTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher(log)
	}
	return &Service{
		repo:      repo,
		tenants:   tenants,
		users:     users,
		links:     links,
		notify:    dispatcher,
		log:       log,
		inviteTTL: inviteTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RequestJoin creates a pending join request from the user. Any existing
// relation, pending or joined, blocks a new one.
func (s *Service) RequestJoin(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fault.New(fault.KindNotFound, "tenant not found")
	}
	existing, err := s.repo.GetMembership(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fault.New(fault.KindAlreadyExists, "relation already exists")
	}
	m := &domain.Membership{
		ID:        uuid.NewString(),
		UserID:    userID,
		TenantID:  tenantID,
		Role:      domain.RoleMember,
		Joined:    false,
		Action:    domain.ActionRequestFromUser,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Invite invites an email address into the tenant. An address with an account
// gets a pending membership awaiting their answer; an unknown address gets a
// TeamInvitation carrying a signed registration link. When the tenant
// enforces its verified domain, mismatched addresses are rejected.
func (s *Service) Invite(ctx context.Context, tenantID, email string, role domain.Role) (*InviteResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = domain.RoleMember
	}
	if role == domain.RoleOwner {
		return nil, fault.New(fault.KindPermissionDenied, "cannot invite as owner")
	}
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fault.New(fault.KindNotFound, "tenant not found")
	}
	allowed, err := s.emailAllowed(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fault.New(fault.KindPermissionDenied, "tenant enforces a verified domain")
	}

	e, err := s.users.GetEmailByAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	if e != nil {
		existing, err := s.repo.GetMembership(ctx, e.UserID, tenantID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fault.New(fault.KindAlreadyExists, "relation already exists")
		}
		m := &domain.Membership{
			ID:        uuid.NewString(),
			UserID:    e.UserID,
			TenantID:  tenantID,
			Role:      role,
			Joined:    false,
			Action:    domain.ActionRequestToUser,
			CreatedAt: s.now(),
		}
		if err := s.repo.CreateMembership(ctx, m); err != nil {
			return nil, err
		}
		s.notify.Send(ctx, notify.TemplateTeamInvitation, email, map[string]string{"tenant": t.Name})
		return &InviteResult{Membership: m}, nil
	}

	now := s.now()
	open, err := s.repo.GetInvitationByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if !open.Expired(now) {
			return nil, fault.New(fault.KindAlreadyExists, "invitation already open")
		}
		if err := s.repo.DeleteInvitation(ctx, open.ID); err != nil {
			return nil, err
		}
	}

	inv := &domain.TeamInvitation{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Email:     email,
		Role:      role,
		ExpiresAt: now.Add(s.inviteTTL),
		CreatedAt: now,
	}
	link, err := s.links.Issue(security.LinkPurposeInvitation, email, tenantID, s.inviteTTL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	s.notify.Send(ctx, notify.TemplateTeamInvitation, email, map[string]string{
		"link":   link,
		"tenant": t.Name,
	})
	return &InviteResult{Invitation: inv, Link: link}, nil
}

// Accept resolves a pending relation in the affirmative. For a join request
// the tenant side assigns the final role; for an invitation the stored role
// stands.
func (s *Service) Accept(ctx context.Context, membershipID string, assignedRole domain.Role) (*domain.Membership, error) {
	m, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fault.New(fault.KindNotFound, "relation not found")
	}
	if m.Joined {
		return nil, fault.New(fault.KindAlreadyExists, "already joined")
	}
	role := m.Role
	if m.Action == domain.ActionRequestFromUser && assignedRole != "" {
		role = assignedRole
	}
	if role == domain.RoleOwner {
		return nil, fault.New(fault.KindPermissionDenied, "cannot assign owner role")
	}
	if err := s.repo.SetJoined(ctx, m.ID, role); err != nil {
		return nil, err
	}
	m.Joined = true
	m.Role = role
	return m, nil
}

// Reject resolves a pending relation in the negative by deleting it.
func (s *Service) Reject(ctx context.Context, membershipID string) error {
	m, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m == nil {
		return fault.New(fault.KindNotFound, "relation not found")
	}
	if m.Joined {
		return fault.New(fault.KindConflict, "relation already joined")
	}
	return s.repo.DeleteMembership(ctx, m.ID)
}

// AcceptInvitation redeems a signed registration link for a freshly
// registered user: joins them with the invited role, auto-verifies the
// registering email (trust derives from the signed link), and deletes the
// invitation row.
func (s *Service) AcceptInvitation(ctx context.Context, signedLink, userID string) (*domain.Membership, error) {
	claims, err := s.links.Validate(signedLink, security.LinkPurposeInvitation)
	if err != nil {
		return nil, fault.New(fault.KindInvalidCredential, "invalid invitation link")
	}
	inv, err := s.repo.GetInvitationByEmail(ctx, claims.TenantID, claims.Email)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fault.New(fault.KindNotFound, "invitation not found")
	}
	if inv.Expired(s.now()) {
		return nil, fault.New(fault.KindExpired, "invitation expired")
	}
	existing, err := s.repo.GetMembership(ctx, userID, inv.TenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fault.New(fault.KindAlreadyExists, "relation already exists")
	}

	m := &domain.Membership{
		ID:        uuid.NewString(),
		UserID:    userID,
		TenantID:  inv.TenantID,
		Role:      inv.Role,
		Joined:    true,
		Action:    domain.ActionRequestToUser,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	if e, err := s.users.GetEmailByAddress(ctx, inv.Email); err == nil && e != nil && e.UserID == userID {
		if err := s.users.MarkEmailVerified(ctx, e.ID, s.now()); err != nil {
			s.log.Warn("invitation email auto-verify failed", zap.String("email_id", e.ID), zap.Error(err))
		}
	}
	if err := s.repo.DeleteInvitation(ctx, inv.ID); err != nil {
		return nil, err
	}
	return m, nil
}

// Deactivate suspends a member, preserving the row and its history. The
// tenant owner can never be deactivated.
func (s *Service) Deactivate(ctx context.Context, tenantID, userID string) error {
	m, t, err := s.memberAndTenant(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if t.OwnerID == userID {
		return fault.New(fault.KindConflict, "owner cannot be deactivated")
	}
	if m.DeactivatedAt != nil {
		return nil
	}
	at := s.now()
	if err := s.repo.SetDeactivated(ctx, m.ID, &at); err != nil {
		return err
	}
	if e, err := s.users.PrimaryEmail(ctx, userID); err == nil && e != nil {
		s.notify.Send(ctx, notify.TemplateMemberDeactivate, e.Address, map[string]string{"tenant": t.Name})
	}
	return nil
}

// Activate reinstates a deactivated member. Under domain enforcement the
// member's primary email must match the enforced domain again.
func (s *Service) Activate(ctx context.Context, tenantID, userID string) error {
	m, _, err := s.memberAndTenant(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if m.DeactivatedAt == nil {
		return nil
	}
	e, err := s.users.PrimaryEmail(ctx, userID)
	if err != nil {
		return err
	}
	address := ""
	if e != nil {
		address = e.Address
	}
	allowed, err := s.emailAllowed(ctx, tenantID, address)
	if err != nil {
		return err
	}
	if !allowed {
		return fault.New(fault.KindPermissionDenied, "email does not match the enforced domain")
	}
	return s.repo.SetDeactivated(ctx, m.ID, nil)
}

// Leave removes the user's own membership. The owner cannot leave their
// tenant; ownership must be transferred first.
func (s *Service) Leave(ctx context.Context, tenantID, userID string) error {
	m, t, err := s.memberAndTenant(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if t.OwnerID == userID {
		return fault.New(fault.KindConflict, "owner cannot leave their tenant")
	}
	return s.repo.DeleteMembership(ctx, m.ID)
}

// Remove deletes a member from the tenant. The owner can never be removed.
func (s *Service) Remove(ctx context.Context, tenantID, userID string) error {
	m, t, err := s.memberAndTenant(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if t.OwnerID == userID {
		return fault.New(fault.KindConflict, "owner cannot be removed")
	}
	return s.repo.DeleteMembership(ctx, m.ID)
}

// TransferOwnership reassigns the tenant to an active member. Only the
// current owner may transfer; the previous owner stays on as an admin.
func (s *Service) TransferOwnership(ctx context.Context, tenantID, actorID, newOwnerID string) error {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if t == nil {
		return fault.New(fault.KindNotFound, "tenant not found")
	}
	if t.OwnerID != actorID {
		return fault.New(fault.KindPermissionDenied, "only the owner can transfer ownership")
	}
	if newOwnerID == actorID {
		return nil
	}
	next, err := s.repo.GetMembership(ctx, newOwnerID, tenantID)
	if err != nil {
		return err
	}
	if next == nil || !next.Active() {
		return fault.New(fault.KindConflict, "new owner must be an active member")
	}
	if err := s.tenants.TransferOwner(ctx, tenantID, newOwnerID); err != nil {
		return err
	}
	if err := s.repo.SetRole(ctx, next.ID, domain.RoleOwner); err != nil {
		return err
	}
	if prev, err := s.repo.GetMembership(ctx, actorID, tenantID); err == nil && prev != nil {
		if err := s.repo.SetRole(ctx, prev.ID, domain.RoleAdmin); err != nil {
			return err
		}
	}
	return nil
}

// Members returns the tenant's relations.
func (s *Service) Members(ctx context.Context, tenantID string) ([]*domain.Membership, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) memberAndTenant(ctx context.Context, tenantID, userID string) (*domain.Membership, *tenantdomain.Tenant, error) {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, fault.New(fault.KindNotFound, "tenant not found")
	}
	m, err := s.repo.GetMembership(ctx, userID, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if m == nil || !m.Joined {
		return nil, nil, fault.New(fault.KindNotFound, "member not found")
	}
	return m, t, nil
}

// emailAllowed applies domain enforcement: when any verified tenant domain
// carries an enforce_domain rule, the address must fall under one of them.
func (s *Service) emailAllowed(ctx context.Context, tenantID, email string) (bool, error) {
	domains, err := s.tenants.ListDomains(ctx, tenantID)
	if err != nil {
		return false, err
	}
	enforced := make([]*tenantdomain.Domain, 0, len(domains))
	for _, d := range domains {
		if !d.Verified() {
			continue
		}
		rule, err := s.tenants.GetRule(ctx, d.ID, tenantdomain.RuleEnforceDomain)
		if err != nil {
			return false, err
		}
		if rule != nil && rule.BoolValue() {
			enforced = append(enforced, d)
		}
	}
	if len(enforced) == 0 {
		return true, nil
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false, nil
	}
	emailDomain := email[at+1:]
	for _, d := range enforced {
		if d.Matches(emailDomain) {
			return true, nil
		}
	}
	return false, nil
}
