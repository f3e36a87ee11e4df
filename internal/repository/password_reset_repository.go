package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/travel-planner/internal/model"
)

// PasswordResetRepo persists hashed single-use password-reset tokens.
type PasswordResetRepo struct{ DB *sql.DB }

func NewPasswordResetRepo(db *sql.DB) *PasswordResetRepo { return &PasswordResetRepo{DB: db} }

// Replace marks every unconsumed token for the user as used and inserts
// the new hashed token, as one transaction so exactly one valid token
// exists per user at a time.
func (r *PasswordResetRepo) Replace(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at=UTC_TIMESTAMP() WHERE user_id=? AND used_at IS NULL`,
		userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)`,
		userID, tokenHash, expiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByHash fetches a reset row by its hashed token, used or not; the
// caller decides validity.
func (r *PasswordResetRepo) GetByHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, used_at, created_at
		 FROM password_reset_tokens WHERE token_hash=? LIMIT 1`,
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return model.PasswordResetToken{}, ErrNotFound
	}
	if err != nil {
		return model.PasswordResetToken{}, err
	}
	return t, nil
}

// MarkUsed consumes a token by setting used_at.  Consuming a token that
// does not exist or was already consumed returns ErrNotFound.
func (r *PasswordResetRepo) MarkUsed(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at=UTC_TIMESTAMP() WHERE token_hash=? AND used_at IS NULL`,
		tokenHash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupExpired hard-deletes rows past expiry.  Reset rows carry no
// audit value once stale, unlike verification tokens which are cleared
// in place on the user row.
func (r *PasswordResetRepo) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
