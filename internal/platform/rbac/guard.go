// Package rbac guards tenant-scoped operations by membership role. The domain
// services assume their caller was authorized; embedding applications run
// these checks between token classification and the service call.
package rbac

import (
	"context"

	"identity-plane/internal/fault"
	"identity-plane/internal/membership/domain"
)

// MembershipGetter resolves a user's relation to a tenant. Satisfied by the
// membership repository.
type MembershipGetter interface {
	GetMembership(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
}

// RequireMember ensures the user is an active member of the tenant, any role.
// Returns the membership on success.
func RequireMember(ctx context.Context, getter MembershipGetter, userID, tenantID string) (*domain.Membership, error) {
	if userID == "" || tenantID == "" {
		return nil, fault.New(fault.KindPermissionDenied, "user and tenant required")
	}
	m, err := getter.GetMembership(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active() {
		return nil, fault.New(fault.KindPermissionDenied, "not a member of this tenant")
	}
	return m, nil
}

// RequireAdmin ensures the user is an active member with role owner or admin.
func RequireAdmin(ctx context.Context, getter MembershipGetter, userID, tenantID string) (*domain.Membership, error) {
	m, err := RequireMember(ctx, getter, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if m.Role != domain.RoleOwner && m.Role != domain.RoleAdmin {
		return nil, fault.New(fault.KindPermissionDenied, "tenant admin or owner required")
	}
	return m, nil
}

// RequireOwner ensures the user is the tenant's active owner member.
func RequireOwner(ctx context.Context, getter MembershipGetter, userID, tenantID string) (*domain.Membership, error) {
	m, err := RequireMember(ctx, getter, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if m.Role != domain.RoleOwner {
		return nil, fault.New(fault.KindPermissionDenied, "tenant owner required")
	}
	return m, nil
}
