package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"identity-plane/internal/membership/domain"
)

// PostgresRepository persists memberships and invitations.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const membershipColumns = `id, user_id, tenant_id, role, joined, action, deactivated_at, created_at`

func scanMembership(row interface{ Scan(...any) error }) (*domain.Membership, error) {
	var m domain.Membership
	var role, action string
	err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &role, &m.Joined, &action, &m.DeactivatedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	m.Action = domain.Action(action)
	return &m, nil
}

// CreateMembership inserts the relation.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, tenant_id, role, joined, action, deactivated_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.UserID, m.TenantID, string(m.Role), m.Joined, string(m.Action), m.DeactivatedAt, m.CreatedAt,
	)
	return err
}

// GetMembership returns the (user, tenant) relation, or nil.
func (r *PostgresRepository) GetMembership(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID)
	return scanMembership(row)
}

// GetMembershipByID returns the relation, or nil.
func (r *PostgresRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id)
	return scanMembership(row)
}

// ListByTenant returns the tenant's relations, oldest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
}

// ListByUser returns the user's relations, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query, arg string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetJoined marks the relation accepted with the final role.
func (r *PostgresRepository) SetJoined(ctx context.Context, id string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET joined = TRUE, role = $2 WHERE id = $1`, id, string(role))
	return err
}

// SetRole updates the member's role.
func (r *PostgresRepository) SetRole(ctx context.Context, id string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET role = $2 WHERE id = $1`, id, string(role))
	return err
}

// SetDeactivated sets or clears the deactivation timestamp.
func (r *PostgresRepository) SetDeactivated(ctx context.Context, id string, at *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET deactivated_at = $2 WHERE id = $1`, id, at)
	return err
}

// DeleteMembership removes the relation.
func (r *PostgresRepository) DeleteMembership(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	return err
}

const invitationColumns = `id, tenant_id, email, role, expires_at, created_at`

func scanInvitation(row interface{ Scan(...any) error }) (*domain.TeamInvitation, error) {
	var i domain.TeamInvitation
	var role string
	err := row.Scan(&i.ID, &i.TenantID, &i.Email, &role, &i.ExpiresAt, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Role = domain.Role(role)
	return &i, nil
}

// CreateInvitation inserts the invitation.
func (r *PostgresRepository) CreateInvitation(ctx context.Context, i *domain.TeamInvitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_invitations (id, tenant_id, email, role, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		i.ID, i.TenantID, i.Email, string(i.Role), i.ExpiresAt, i.CreatedAt,
	)
	return err
}

// GetInvitation returns the invitation, or nil.
func (r *PostgresRepository) GetInvitation(ctx context.Context, id string) (*domain.TeamInvitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM team_invitations WHERE id = $1`, id)
	return scanInvitation(row)
}

// GetInvitationByEmail returns the tenant's invitation for the address, or nil.
func (r *PostgresRepository) GetInvitationByEmail(ctx context.Context, tenantID, email string) (*domain.TeamInvitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM team_invitations WHERE tenant_id = $1 AND lower(email) = lower($2)`,
		tenantID, email)
	return scanInvitation(row)
}

// ListInvitations returns the tenant's open invitations, oldest first.
func (r *PostgresRepository) ListInvitations(ctx context.Context, tenantID string) ([]*domain.TeamInvitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM team_invitations WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.TeamInvitation
	for rows.Next() {
		i, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// DeleteInvitation removes the invitation.
func (r *PostgresRepository) DeleteInvitation(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM team_invitations WHERE id = $1`, id)
	return err
}
