package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/travel-planner/internal/model"
)

// RefreshTokenRepo persists hashed refresh-token rotation-ids.  The
// store enforces a single active session per user: storing a new token
// deletes every prior row for that user inside one transaction.
type RefreshTokenRepo struct{ DB *sql.DB }

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo { return &RefreshTokenRepo{DB: db} }

// Store deletes all existing rows for the user and inserts the new
// hashed rotation-id as one transaction, so two concurrent refreshes
// cannot both leave a surviving row.
func (r *RefreshTokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id=?`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)`,
		userID, tokenHash, expiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// Validate returns the row matching a hashed rotation-id.  An expired
// row is deleted on sight and reported as ErrNotFound (lazy expiry).
func (r *RefreshTokenRepo) Validate(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM refresh_tokens WHERE token_hash=? LIMIT 1`,
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		_, _ = r.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id=?`, t.ID)
		return model.RefreshToken{}, ErrNotFound
	}
	return t, nil
}

// Revoke deletes the row for a hashed rotation-id and reports whether a
// row was actually removed.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash=?`, tokenHash)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RevokeAllForUser deletes every refresh row owned by the user.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id=?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CleanupExpired bulk-deletes rows past their expiry.
func (r *RefreshTokenRepo) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
