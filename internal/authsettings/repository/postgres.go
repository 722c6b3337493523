package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"identity-plane/internal/authsettings/domain"
)

// PostgresRepository persists settings to the tenant_auth_settings table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an auth settings repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts or replaces the tenant's settings.
func (r *PostgresRepository) Upsert(ctx context.Context, s *domain.Settings) error {
	var provider, clientID, secretEnc, tenantHint string
	extra := []byte("{}")
	if s.SSO != nil {
		provider = string(s.SSO.Provider)
		clientID = s.SSO.ClientID
		secretEnc = s.SSO.ClientSecretEnc
		tenantHint = s.SSO.TenantHint
		if len(s.SSO.Extra) > 0 {
			b, err := json.Marshal(s.SSO.Extra)
			if err != nil {
				return err
			}
			extra = b
		}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenant_auth_settings
		   (tenant_id, auth_method, sso_provider, sso_client_id, sso_client_secret_enc, sso_tenant_id, sso_extra, auto_provision, auto_provision_role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		   auth_method = $2, sso_provider = $3, sso_client_id = $4, sso_client_secret_enc = $5,
		   sso_tenant_id = $6, sso_extra = $7, auto_provision = $8, auto_provision_role = $9, updated_at = $11`,
		s.TenantID, string(s.AuthMethod), provider, clientID, secretEnc, tenantHint, extra,
		s.AutoProvision, s.AutoProvisionRole, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// Get returns the tenant's settings, or nil.
func (r *PostgresRepository) Get(ctx context.Context, tenantID string) (*domain.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT tenant_id, auth_method, sso_provider, sso_client_id, sso_client_secret_enc, sso_tenant_id, sso_extra, auto_provision, auto_provision_role, created_at, updated_at
		 FROM tenant_auth_settings WHERE tenant_id = $1`, tenantID)

	var s domain.Settings
	var method, provider, clientID, secretEnc, tenantHint string
	var extra []byte
	err := row.Scan(&s.TenantID, &method, &provider, &clientID, &secretEnc, &tenantHint,
		&extra, &s.AutoProvision, &s.AutoProvisionRole, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.AuthMethod = domain.AuthMethod(method)
	if provider != "" {
		cfg := &domain.SSOConfig{
			Provider:        domain.SSOProvider(provider),
			ClientID:        clientID,
			ClientSecretEnc: secretEnc,
			TenantHint:      tenantHint,
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &cfg.Extra); err != nil {
				return nil, err
			}
		}
		s.SSO = cfg
	}
	return &s, nil
}

// Delete removes the tenant's settings.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tenant_auth_settings WHERE tenant_id = $1`, tenantID)
	return err
}
