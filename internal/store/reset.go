package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mernauth/authserver/types"
)

// ResetSessionRepository handles persistence for in-progress password-reset
// sessions, keyed by username so concurrent resets for different users do
// not interfere.
type ResetSessionRepository struct {
	db *sql.DB
}

func NewResetSessionRepository(db *sql.DB) *ResetSessionRepository {
	return &ResetSessionRepository{db: db}
}

func (r *ResetSessionRepository) Upsert(ctx context.Context, session types.ResetSession) error {
	const query = `
		INSERT INTO reset_sessions (username, verified, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET verified = EXCLUDED.verified,
			expires_at = EXCLUDED.expires_at`
	_, err := r.db.ExecContext(ctx, query, session.Username, session.Verified, session.ExpiresAt)
	return err
}

func (r *ResetSessionRepository) GetByUsername(ctx context.Context, username string) (types.ResetSession, error) {
	const query = `
		SELECT username, verified, expires_at
		FROM reset_sessions
		WHERE username = $1`
	var session types.ResetSession
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&session.Username,
		&session.Verified,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ResetSession{}, ErrNotFound
		}
		return types.ResetSession{}, err
	}
	return session, nil
}

// MarkVerified flips the session into the verified state after a successful
// OTP check.
func (r *ResetSessionRepository) MarkVerified(ctx context.Context, username string) error {
	const query = `
		UPDATE reset_sessions
		SET verified = TRUE
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

// Delete removes the session. Deleting a session that does not exist is
// not an error; the reset flow clears state unconditionally.
func (r *ResetSessionRepository) Delete(ctx context.Context, username string) error {
	const query = `DELETE FROM reset_sessions WHERE username = $1`
	_, err := r.db.ExecContext(ctx, query, username)
	return err
}
