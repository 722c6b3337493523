package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"identity-plane/internal/tenant/domain"
)

// PostgresRepository persists tenants, domains, and rules.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `id, user_id, slug, name, activated_at, inactive_reason, created_at`

func scanTenant(row interface{ Scan(...any) error }) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.OwnerID, &t.Slug, &t.Name, &t.ActivatedAt, &t.InactiveReason, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// CreateTenant inserts the tenant.
func (r *PostgresRepository) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, user_id, slug, name, activated_at, inactive_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.OwnerID, t.Slug, t.Name, t.ActivatedAt, t.InactiveReason, t.CreatedAt,
	)
	return err
}

// GetTenant returns the tenant, or nil.
func (r *PostgresRepository) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// GetTenantBySlug returns the tenant with the slug, or nil.
func (r *PostgresRepository) GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
	return scanTenant(row)
}

// SetTenantActivation sets or clears activated_at.
func (r *PostgresRepository) SetTenantActivation(ctx context.Context, id string, activatedAt *time.Time, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET activated_at = $2, inactive_reason = $3 WHERE id = $1`,
		id, activatedAt, reason)
	return err
}

// TransferOwner reassigns the owning user.
func (r *PostgresRepository) TransferOwner(ctx context.Context, id, newOwnerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET user_id = $2 WHERE id = $1`, id, newOwnerID)
	return err
}

const domainColumns = `id, tenant_id, domain, domain_type, is_primary, verified_at, verification_digest, created_at`

func scanDomain(row interface{ Scan(...any) error }) (*domain.Domain, error) {
	var d domain.Domain
	var typ string
	err := row.Scan(&d.ID, &d.TenantID, &d.Name, &typ, &d.IsPrimary,
		&d.VerifiedAt, &d.VerificationDigest, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Type = domain.DomainType(typ)
	return &d, nil
}

// CreateDomain inserts the domain.
func (r *PostgresRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domains (id, tenant_id, domain, domain_type, is_primary, verified_at, verification_digest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.TenantID, d.Name, string(d.Type), d.IsPrimary, d.VerifiedAt, d.VerificationDigest, d.CreatedAt,
	)
	return err
}

// GetDomain returns the domain, or nil.
func (r *PostgresRepository) GetDomain(ctx context.Context, id string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+domainColumns+` FROM domains WHERE id = $1`, id)
	return scanDomain(row)
}

// GetDomainByName returns the domain with the (lowercased) name, or nil.
func (r *PostgresRepository) GetDomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+domainColumns+` FROM domains WHERE lower(domain) = lower($1)`, name)
	return scanDomain(row)
}

// ListDomains returns the tenant's domains, oldest first.
func (r *PostgresRepository) ListDomains(ctx context.Context, tenantID string) ([]*domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+domainColumns+` FROM domains WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDomain removes the domain and, via cascade, its rules.
func (r *PostgresRepository) DeleteDomain(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM domains WHERE id = $1`, id)
	return err
}

// SetDomainVerified stamps verified_at and drops the token digest.
func (r *PostgresRepository) SetDomainVerified(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE domains SET verified_at = $2, verification_digest = '' WHERE id = $1`, id, at)
	return err
}

// SetPrimaryDomain unsets the tenant's current primary and sets the given one
// in a transaction; the partial unique index on (tenant_id) WHERE is_primary
// backstops the invariant.
func (r *PostgresRepository) SetPrimaryDomain(ctx context.Context, tenantID, domainID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE domains SET is_primary = FALSE WHERE tenant_id = $1 AND is_primary`, tenantID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE domains SET is_primary = TRUE WHERE id = $1 AND tenant_id = $2`, domainID, tenantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.New("domain does not belong to tenant")
	}
	return tx.Commit()
}

// UpsertRule inserts or replaces the rule.
func (r *PostgresRepository) UpsertRule(ctx context.Context, rule *domain.DomainRule) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domain_rules (id, domain_id, name, value_type, value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (domain_id, name) DO UPDATE SET value_type = $4, value = $5`,
		rule.ID, rule.DomainID, rule.Name, string(rule.ValueType), []byte(rule.Value), rule.CreatedAt,
	)
	return err
}

// GetRule returns the named rule, or nil.
func (r *PostgresRepository) GetRule(ctx context.Context, domainID, name string) (*domain.DomainRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, domain_id, name, value_type, value, created_at FROM domain_rules
		 WHERE domain_id = $1 AND name = $2`, domainID, name)
	return scanRule(row)
}

// ListRules returns all rules on the domain.
func (r *PostgresRepository) ListRules(ctx context.Context, domainID string) ([]*domain.DomainRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, domain_id, name, value_type, value, created_at FROM domain_rules
		 WHERE domain_id = $1 ORDER BY name`, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.DomainRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func scanRule(row interface{ Scan(...any) error }) (*domain.DomainRule, error) {
	var rule domain.DomainRule
	var typ string
	var value []byte
	err := row.Scan(&rule.ID, &rule.DomainID, &rule.Name, &typ, &value, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rule.ValueType = domain.RuleValueType(typ)
	rule.Value = value
	return &rule, nil
}
