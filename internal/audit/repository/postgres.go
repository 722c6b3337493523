package repository

import (
	"context"
	"database/sql"

	"identity-plane/internal/audit/domain"
)

// PostgresRepository persists login attempts to the login_attempts table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an attempt repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the attempt. The user_id column is NULL when the principal
// was never identified.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.LoginAttempt) error {
	var userID any
	if a.UserID != "" {
		userID = a.UserID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (id, user_id, email, method, browser, platform, device, ip, success, suspicious, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, userID, a.Email, string(a.Method),
		a.Fingerprint.Browser, a.Fingerprint.Platform, a.Fingerprint.Device, a.Fingerprint.IP,
		a.Success, a.Suspicious, a.CreatedAt,
	)
	return err
}

// ListByUser returns the user's attempts, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, COALESCE(user_id::text, ''), email, method, browser, platform, device, ip, success, suspicious, created_at
		 FROM login_attempts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.LoginAttempt
	for rows.Next() {
		var a domain.LoginAttempt
		var method string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Email, &method,
			&a.Fingerprint.Browser, &a.Fingerprint.Platform, &a.Fingerprint.Device, &a.Fingerprint.IP,
			&a.Success, &a.Suspicious, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Method = domain.Method(method)
		out = append(out, &a)
	}
	return out, rows.Err()
}
