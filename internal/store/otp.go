package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mernauth/authserver/types"
)

// OtpRepository handles persistence for password-reset one-time passcodes.
// Each username has at most one row; Upsert overwrites any previous code
// atomically so concurrent requests resolve to the last writer's code.
type OtpRepository struct {
	db *sql.DB
}

func NewOtpRepository(db *sql.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

func (r *OtpRepository) Upsert(ctx context.Context, record types.OtpRecord) error {
	const query = `
		INSERT INTO password_otps (username, otp_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET otp_hash = EXCLUDED.otp_hash,
			expires_at = EXCLUDED.expires_at`
	_, err := r.db.ExecContext(ctx, query, record.Username, record.OtpHash, record.ExpiresAt)
	return err
}

func (r *OtpRepository) GetByUsername(ctx context.Context, username string) (types.OtpRecord, error) {
	const query = `
		SELECT username, otp_hash, expires_at
		FROM password_otps
		WHERE username = $1`
	var (
		record    types.OtpRecord
		otpHash   sql.NullString
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(&record.Username, &otpHash, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.OtpRecord{}, ErrNotFound
		}
		return types.OtpRecord{}, err
	}
	if !otpHash.Valid || !expiresAt.Valid {
		// Secret fields were cleared after a successful verification.
		return types.OtpRecord{}, ErrNotFound
	}
	record.OtpHash = otpHash.String
	record.ExpiresAt = expiresAt.Time
	return record, nil
}

// ClearSecret nulls out the code hash and expiry, making the code single-use
// while keeping the row around for the next upsert.
func (r *OtpRepository) ClearSecret(ctx context.Context, username string) error {
	const query = `
		UPDATE password_otps
		SET otp_hash = NULL,
			expires_at = NULL
		WHERE username = $1`
	result, err := r.db.ExecContext(ctx, query, username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
