package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"identity-plane/internal/mfa/domain"
)

// PostgresRepository persists methods and recovery codes to the mfa_methods
// and recovery_codes tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an MFA repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const methodColumns = `id, user_id, method, preferred, secret_enc, otp_digest, otp_expires_at, last_used_at, created_at`

func scanMethod(row interface{ Scan(...any) error }) (*domain.Method, error) {
	var m domain.Method
	var kind string
	err := row.Scan(&m.ID, &m.UserID, &kind, &m.Preferred, &m.SecretEnc,
		&m.OTPDigest, &m.OTPExpiresAt, &m.LastUsedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Kind = domain.Kind(kind)
	return &m, nil
}

// CreateMethod inserts the method.
func (r *PostgresRepository) CreateMethod(ctx context.Context, m *domain.Method) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mfa_methods (id, user_id, method, preferred, secret_enc, otp_digest, otp_expires_at, last_used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.UserID, string(m.Kind), m.Preferred, m.SecretEnc,
		m.OTPDigest, m.OTPExpiresAt, m.LastUsedAt, m.CreatedAt,
	)
	return err
}

// GetMethod returns the user's method of the given kind, or nil.
func (r *PostgresRepository) GetMethod(ctx context.Context, userID string, kind domain.Kind) (*domain.Method, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+methodColumns+` FROM mfa_methods WHERE user_id = $1 AND method = $2`,
		userID, string(kind))
	return scanMethod(row)
}

// ListMethods returns the user's enrolled methods, oldest first.
func (r *PostgresRepository) ListMethods(ctx context.Context, userID string) ([]*domain.Method, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+methodColumns+` FROM mfa_methods WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Method
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMethod removes the method.
func (r *PostgresRepository) DeleteMethod(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_methods WHERE id = $1`, id)
	return err
}

// SetPreferred unsets the user's current preferred method and sets the given
// one inside a transaction; the partial unique index on (user_id) WHERE
// preferred backstops the invariant.
func (r *PostgresRepository) SetPreferred(ctx context.Context, userID, methodID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE mfa_methods SET preferred = FALSE WHERE user_id = $1 AND preferred`, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE mfa_methods SET preferred = TRUE WHERE id = $1 AND user_id = $2`, methodID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.New("method does not belong to user")
	}
	return tx.Commit()
}

// SetOTP stores a fresh email OTP digest and expiry.
func (r *PostgresRepository) SetOTP(ctx context.Context, methodID, digest string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE mfa_methods SET otp_digest = $2, otp_expires_at = $3 WHERE id = $1`,
		methodID, digest, expiresAt)
	return err
}

// ClearOTP removes the outstanding email OTP.
func (r *PostgresRepository) ClearOTP(ctx context.Context, methodID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE mfa_methods SET otp_digest = '', otp_expires_at = NULL WHERE id = $1`, methodID)
	return err
}

// TouchLastUsed records a successful verification with the method.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, methodID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE mfa_methods SET last_used_at = $2 WHERE id = $1`, methodID, at)
	return err
}

// AddRecoveryCodes inserts a batch of codes.
func (r *PostgresRepository) AddRecoveryCodes(ctx context.Context, codes []*domain.RecoveryCode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, c := range codes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recovery_codes (id, user_id, digest, created_at) VALUES ($1, $2, $3, $4)`,
			c.ID, c.UserID, c.Digest, c.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteRecoveryCodes removes all of the user's codes.
func (r *PostgresRepository) DeleteRecoveryCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recovery_codes WHERE user_id = $1`, userID)
	return err
}

// ConsumeRecoveryCode deletes by digest in one statement; the row count tells
// whether this caller won.
func (r *PostgresRepository) ConsumeRecoveryCode(ctx context.Context, userID, digest string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE user_id = $1 AND digest = $2`, userID, digest)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
