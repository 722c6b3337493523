// Package repository persists memberships and team invitations.
package repository

import (
	"context"
	"time"

	"identity-plane/internal/membership/domain"
)

// Repository stores memberships and invitations. Lookups return (nil, nil)
// for missing rows.
type Repository interface {
	CreateMembership(ctx context.Context, m *domain.Membership) error
	GetMembership(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	// SetJoined marks the relation accepted with the final role.
	SetJoined(ctx context.Context, id string, role domain.Role) error
	SetRole(ctx context.Context, id string, role domain.Role) error
	// SetDeactivated sets or clears the deactivation timestamp.
	SetDeactivated(ctx context.Context, id string, at *time.Time) error
	DeleteMembership(ctx context.Context, id string) error

	CreateInvitation(ctx context.Context, i *domain.TeamInvitation) error
	GetInvitation(ctx context.Context, id string) (*domain.TeamInvitation, error)
	GetInvitationByEmail(ctx context.Context, tenantID, email string) (*domain.TeamInvitation, error)
	ListInvitations(ctx context.Context, tenantID string) ([]*domain.TeamInvitation, error)
	DeleteInvitation(ctx context.Context, id string) error
}
