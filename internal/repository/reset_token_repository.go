package repository

import (
	"context"
	"database/sql"
	"time"
)

// ResetTokenRepo persists single-use password-reset grants.  The row ID is
// the jti claim of the signed reset token.
type ResetTokenRepo struct{ DB *sql.DB }

func NewResetTokenRepo(db *sql.DB) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

// Store inserts a reset row.
func (r *ResetTokenRepo) Store(ctx context.Context, id string, userID uint64, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_resets (id, user_id, expires_at) VALUES (?,?,?)",
		id, userID, expiresAt)
	return err
}

// Consume marks a reset row as used and returns the owning user ID.  The
// UPDATE touches only unused, unexpired rows, so concurrent redemptions of
// the same token cannot both succeed.
func (r *ResetTokenRepo) Consume(ctx context.Context, id string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_resets SET used_at=NOW() WHERE id=? AND used_at IS NULL AND expires_at > NOW()",
		id)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrResetNotFound
	}
	var userID uint64
	err = r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM password_resets WHERE id=? LIMIT 1", id).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// PurgeExpired removes stale rows.  Called opportunistically; losing the
// race with another caller is harmless.
func (r *ResetTokenRepo) PurgeExpired(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_resets WHERE expires_at < NOW() AND used_at IS NULL")
	return err
}
