package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/travel-planner/internal/model"
)

// ErrEmailExists is returned when an insert collides with the unique
// email index.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when an insert collides with the unique
// username index.
var ErrUsernameExists = errors.New("username already exists")

const userColumns = `id, email, username, password_hash, full_name, email_verified,
	verification_token, verification_expires_at, last_login_at, created_at, updated_at`

// UserRepo provides data access to the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the fields needed to insert a user row.  PasswordHash
// is already hashed by the caller; an empty hash marks an OAuth-only
// account.
type NewUser struct {
	Email         string
	Username      string
	PasswordHash  string
	FullName      string
	EmailVerified bool
	LastLoginAt   *time.Time
}

// Create inserts a user and returns its ID.  Duplicate-key failures are
// mapped to ErrEmailExists or ErrUsernameExists by inspecting which
// unique index the driver reports.
func (r *UserRepo) Create(ctx context.Context, nu NewUser) (uint64, error) {
	nu.Email = strings.ToLower(strings.TrimSpace(nu.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, full_name, email_verified, last_login_at)
		 VALUES (?,?,?,?,?,?)`,
		nu.Email, nu.Username, nu.PasswordHash, nu.FullName, nu.EmailVerified, nu.LastLoginAt)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=? LIMIT 1`, username)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
}

// UsernameExists reports whether a username is taken.  Used when
// synthesizing usernames for OAuth-created accounts.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE username=? LIMIT 1`, username).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateLastLogin stamps the user's last successful login.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET last_login_at=UTC_TIMESTAMP() WHERE id=?`, id)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=? WHERE id=?`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerificationToken stores a pending email-verification token,
// overwriting any prior one so a single token is active per user.
func (r *UserRepo) SetVerificationToken(ctx context.Context, id uint64, token string, expires time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET verification_token=?, verification_expires_at=? WHERE id=?`,
		token, expires, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByVerificationToken fetches the user holding a pending token.
func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token=? LIMIT 1`, token)
}

// ClearVerificationToken drops the pending token without touching the
// verified flag.
func (r *UserRepo) ClearVerificationToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET verification_token=NULL, verification_expires_at=NULL WHERE id=?`, id)
	return err
}

// MarkEmailVerified sets the verified flag and clears the pending token
// in one statement.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email_verified=1, verification_token=NULL, verification_expires_at=NULL WHERE id=?`, id)
	return err
}

// ClearExpiredVerificationTokens bulk-clears stale unconsumed tokens and
// returns how many rows were touched.  Unlike reset tokens the rows stay:
// only the token columns are nulled.
func (r *UserRepo) ClearExpiredVerificationTokens(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET verification_token=NULL, verification_expires_at=NULL
		 WHERE verification_token IS NOT NULL AND verification_expires_at < UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &u.EmailVerified,
		&u.VerificationToken, &u.VerificationExpires, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}
