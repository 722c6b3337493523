package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"identity-plane/internal/token/domain"
)

// PostgresRepository persists access tokens to the access_tokens table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a token repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the token.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.AccessToken) error {
	var attemptID any
	if t.LoginAttemptID != "" {
		attemptID = t.LoginAttemptID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (id, user_id, token_type, secret_digest, permissions, expires_at, last_used_at, login_attempt_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.UserID, string(t.Type), t.SecretDigest, pq.Array(t.Permissions),
		t.ExpiresAt, t.LastUsedAt, attemptID, t.CreatedAt,
	)
	return err
}

const tokenColumns = `id, user_id, token_type, secret_digest, permissions, expires_at, last_used_at, COALESCE(login_attempt_id::text, ''), created_at`

func scanToken(row interface{ Scan(...any) error }) (*domain.AccessToken, error) {
	var t domain.AccessToken
	var typ string
	err := row.Scan(&t.ID, &t.UserID, &typ, &t.SecretDigest, pq.Array(&t.Permissions),
		&t.ExpiresAt, &t.LastUsedAt, &t.LoginAttemptID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Type = domain.Type(typ)
	return &t, nil
}

// GetByID returns the token, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM access_tokens WHERE id = $1`, id)
	return scanToken(row)
}

// ListByUser returns all of the user's tokens.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AccessToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM access_tokens WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AccessToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateLastUsed records classification time.
func (r *PostgresRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

// Promote mutates type mfa -> login in one statement; the WHERE clause makes
// a second concurrent promotion (or a promote after revoke) lose with n=0.
func (r *PostgresRepository) Promote(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET token_type = 'login', expires_at = $2 WHERE id = $1 AND token_type = 'mfa'`,
		id, expiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the token.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE id = $1`, id)
	return err
}

// DeleteByUserAndType removes all of the user's tokens of the given type.
func (r *PostgresRepository) DeleteByUserAndType(ctx context.Context, userID string, typ domain.Type) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE user_id = $1 AND token_type = $2`, userID, string(typ))
	return err
}
