package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/travel-planner/internal/model"
)

// OAuthRepo persists links between external provider identities and
// local users in the oauth_accounts table.
type OAuthRepo struct{ DB *sql.DB }

func NewOAuthRepo(db *sql.DB) *OAuthRepo { return &OAuthRepo{DB: db} }

// Create inserts a provider link and returns its ID.
func (r *OAuthRepo) Create(ctx context.Context, a model.OAuthAccount) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO oauth_accounts (user_id, provider, provider_user_id, email, name, picture)
		 VALUES (?,?,?,?,?,?)`,
		a.UserID, a.Provider, a.ProviderUserID, a.Email, a.Name, a.Picture)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByProvider looks up a link by its (provider, provider_user_id) key.
func (r *OAuthRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (model.OAuthAccount, error) {
	var a model.OAuthAccount
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, email, name, picture, created_at
		 FROM oauth_accounts WHERE provider=? AND provider_user_id=? LIMIT 1`,
		provider, providerUserID).Scan(
		&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID, &a.Email, &a.Name, &a.Picture, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return model.OAuthAccount{}, ErrNotFound
	}
	if err != nil {
		return model.OAuthAccount{}, err
	}
	return a, nil
}

// ListForUser returns every provider link owned by a user.
func (r *OAuthRepo) ListForUser(ctx context.Context, userID uint64) ([]model.OAuthAccount, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, email, name, picture, created_at
		 FROM oauth_accounts WHERE user_id=? ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.OAuthAccount
	for rows.Next() {
		var a model.OAuthAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID,
			&a.Email, &a.Name, &a.Picture, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Delete removes the (user, provider) link.  Zero affected rows means
// the provider was not linked, reported as ErrConflict.
func (r *OAuthRepo) Delete(ctx context.Context, userID uint64, provider string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM oauth_accounts WHERE user_id=? AND provider=?`, userID, provider)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}
