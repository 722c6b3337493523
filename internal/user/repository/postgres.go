package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"identity-plane/internal/user/domain"
)

// PostgresRepository persists users, emails, and passwords.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateUser inserts the user.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Active, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// GetUser returns the user, or nil if not found.
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, active, created_at, updated_at FROM users WHERE id = $1`, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SetActive flips the active flag.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	return err
}

// AddEmail inserts the email.
func (r *PostgresRepository) AddEmail(ctx context.Context, e *domain.Email) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO emails (id, user_id, address, is_primary, verified_at, otp_digest, otp_expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.Address, e.IsPrimary, e.VerifiedAt, e.OTPDigest, e.OTPExpiresAt, e.CreatedAt,
	)
	return err
}

func scanEmail(row interface{ Scan(...any) error }) (*domain.Email, error) {
	var e domain.Email
	err := row.Scan(&e.ID, &e.UserID, &e.Address, &e.IsPrimary, &e.VerifiedAt, &e.OTPDigest, &e.OTPExpiresAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

const emailColumns = `id, user_id, address, is_primary, verified_at, otp_digest, otp_expires_at, created_at`

// GetEmailByAddress returns the email row for the address, or nil.
func (r *PostgresRepository) GetEmailByAddress(ctx context.Context, address string) (*domain.Email, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE lower(address) = lower($1)`, address)
	return scanEmail(row)
}

// ListEmails returns all emails for the user.
func (r *PostgresRepository) ListEmails(ctx context.Context, userID string) ([]*domain.Email, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PrimaryEmail returns the primary email for the user, or nil.
func (r *PostgresRepository) PrimaryEmail(ctx context.Context, userID string) (*domain.Email, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE user_id = $1 AND is_primary`, userID)
	return scanEmail(row)
}

// SetPrimaryEmail flips the primary flag in one transaction so no concurrent
// reader ever observes two primaries. The partial unique index
// emails_one_primary_per_user backstops the invariant.
func (r *PostgresRepository) SetPrimaryEmail(ctx context.Context, userID, emailID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE emails SET is_primary = FALSE WHERE user_id = $1 AND is_primary`, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE emails SET is_primary = TRUE WHERE id = $1 AND user_id = $2`, emailID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// MarkEmailVerified sets verified_at once; already-verified rows are untouched.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, emailID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE emails SET verified_at = $2 WHERE id = $1 AND verified_at IS NULL`, emailID, at)
	return err
}

// SetEmailOTP stores the hashed one-time code and expiry.
func (r *PostgresRepository) SetEmailOTP(ctx context.Context, emailID, digest string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE emails SET otp_digest = $2, otp_expires_at = $3 WHERE id = $1`, emailID, digest, expiresAt)
	return err
}

// ClearEmailOTP removes the stored one-time code.
func (r *PostgresRepository) ClearEmailOTP(ctx context.Context, emailID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE emails SET otp_digest = '', otp_expires_at = NULL WHERE id = $1`, emailID)
	return err
}

// AddPassword appends to the password history.
func (r *PostgresRepository) AddPassword(ctx context.Context, p *domain.Password) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO passwords (id, user_id, digest, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.UserID, p.Digest, p.CreatedAt,
	)
	return err
}

// LatestPassword returns the newest history entry, or nil.
func (r *PostgresRepository) LatestPassword(ctx context.Context, userID string) (*domain.Password, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, digest, created_at FROM passwords
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	var p domain.Password
	if err := row.Scan(&p.ID, &p.UserID, &p.Digest, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
