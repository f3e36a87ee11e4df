package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/travel-planner/internal/model"
)

// LoginAttemptRepo tracks failed logins per (identifier, ip) pair.
// (identifier, ip_address) is the table's primary key, so failure
// recording can use an atomic upsert increment instead of a racy
// read-then-write.
type LoginAttemptRepo struct{ DB *sql.DB }

func NewLoginAttemptRepo(db *sql.DB) *LoginAttemptRepo { return &LoginAttemptRepo{DB: db} }

// Get returns the attempt row for a key, or ErrNotFound.
func (r *LoginAttemptRepo) Get(ctx context.Context, identifier, ip string) (model.LoginAttempt, error) {
	var a model.LoginAttempt
	err := r.DB.QueryRowContext(ctx,
		`SELECT identifier, ip_address, attempt_count, blocked_until, last_attempt_at
		 FROM login_attempts WHERE identifier=? AND ip_address=? LIMIT 1`,
		identifier, ip).Scan(&a.Identifier, &a.IPAddress, &a.AttemptCount, &a.BlockedUntil, &a.LastAttemptAt)
	if err == sql.ErrNoRows {
		return model.LoginAttempt{}, ErrNotFound
	}
	if err != nil {
		return model.LoginAttempt{}, err
	}
	return a, nil
}

// RecordFailure increments the tally for a key, creating the row on the
// first failure.  Once the count reaches threshold the lockout window is
// set, and while attempts continue during an active lockout the window
// is extended again.  The resulting attempt count is returned.
func (r *LoginAttemptRepo) RecordFailure(ctx context.Context, identifier, ip string, threshold int, lockout time.Duration) (model.LoginAttempt, error) {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO login_attempts (identifier, ip_address, attempt_count, last_attempt_at)
		 VALUES (?,?,1,UTC_TIMESTAMP())
		 ON DUPLICATE KEY UPDATE attempt_count = attempt_count + 1, last_attempt_at = UTC_TIMESTAMP()`,
		identifier, ip)
	if err != nil {
		return model.LoginAttempt{}, err
	}

	a, err := r.Get(ctx, identifier, ip)
	if err != nil {
		return model.LoginAttempt{}, err
	}

	if a.AttemptCount >= threshold {
		until := time.Now().UTC().Add(lockout)
		if _, err := r.DB.ExecContext(ctx,
			`UPDATE login_attempts SET blocked_until=? WHERE identifier=? AND ip_address=?`,
			until, identifier, ip); err != nil {
			return model.LoginAttempt{}, err
		}
		a.BlockedUntil = &until
	}
	return a, nil
}

// Clear removes the row for a key after a successful login.
func (r *LoginAttemptRepo) Clear(ctx context.Context, identifier, ip string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE identifier=? AND ip_address=?`, identifier, ip)
	return err
}

// CleanupStale deletes accumulating rows that never reached lockout and
// have seen no failures since the cutoff.
func (r *LoginAttemptRepo) CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE blocked_until IS NULL AND last_attempt_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
