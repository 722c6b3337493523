package domain

import "time"

// Role of a member within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// RoleTarget is the closed set of things a role can attach to. Teams are the
// only target today; the discriminator exists so stored roles stay
// unambiguous if another target is ever added.
type RoleTarget string

const RoleTargetTeam RoleTarget = "team"

// Action records which side initiated a pending relation.
type Action string

const (
	// ActionRequestFromUser is a join request awaiting tenant approval.
	ActionRequestFromUser Action = "request_from_user"
	// ActionRequestToUser is a tenant invitation awaiting the user's answer.
	ActionRequestToUser Action = "request_to_user"
)

// Membership is the relation between a user and a tenant. Joined=false is a
// pending relation in the direction Action records; Joined=true with a nil
// DeactivatedAt is an active member.
type Membership struct {
	ID            string
	UserID        string
	TenantID      string
	Role          Role
	Joined        bool
	Action        Action
	DeactivatedAt *time.Time
	CreatedAt     time.Time
}

// Pending reports whether the relation awaits an answer.
func (m *Membership) Pending() bool { return !m.Joined }

// Active reports whether the member is joined and not deactivated.
func (m *Membership) Active() bool { return m.Joined && m.DeactivatedAt == nil }

// TeamInvitation invites an email address that has no account yet. It carries
// a signed registration link and expires after a week.
type TeamInvitation struct {
	ID        string
	TenantID  string
	Email     string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the invitation is past its window at now.
func (i *TeamInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
