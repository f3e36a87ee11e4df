package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/repository"
)

// Profile is the normalized identity returned by an external provider.
type Profile struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

// OAuthResult is the outcome of a provider authentication.
type OAuthResult struct {
	User      model.User
	Tokens    auth.TokenPair
	IsNewUser bool
}

// OAuthLinkStore persists provider links.  Implemented by
// repository.OAuthRepo.
type OAuthLinkStore interface {
	Create(ctx context.Context, a model.OAuthAccount) (uint64, error)
	GetByProvider(ctx context.Context, provider, providerUserID string) (model.OAuthAccount, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.OAuthAccount, error)
	Delete(ctx context.Context, userID uint64, provider string) error
}

// OAuthUserStore is the slice of the user repository needed for
// account linking and creation.
type OAuthUserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, nu repository.NewUser) (uint64, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, id uint64) error
}

// PairIssuer issues token pairs.  Implemented by auth.TokenService.
type PairIssuer interface {
	IssuePair(ctx context.Context, userID uint64, email, username string) (auth.TokenPair, error)
}

// OAuthService maps external provider identities onto local accounts:
// an existing link wins, then an email match links a new provider to
// the existing account, and otherwise a fresh account is created with
// a synthesized username and a pre-verified email.
type OAuthService struct {
	links  OAuthLinkStore
	users  OAuthUserStore
	tokens PairIssuer
}

func NewOAuthService(links OAuthLinkStore, users OAuthUserStore, tokens PairIssuer) *OAuthService {
	return &OAuthService{links: links, users: users, tokens: tokens}
}

// Authenticate resolves a provider profile to a local user, creating
// or linking as needed, and issues a token pair.
func (s *OAuthService) Authenticate(ctx context.Context, p Profile) (OAuthResult, error) {
	link, err := s.links.GetByProvider(ctx, p.Provider, p.ProviderID)
	switch {
	case err == nil:
		u, err := s.users.GetByID(ctx, link.UserID)
		if err != nil {
			return OAuthResult{}, fmt.Errorf("load linked user: %w", err)
		}
		return s.finish(ctx, u, false)
	case !errors.Is(err, repository.ErrNotFound):
		return OAuthResult{}, fmt.Errorf("lookup provider link: %w", err)
	}

	if p.Email == "" {
		return OAuthResult{}, fmt.Errorf("%w: email required for %s authentication", ErrUnauthorized, p.Provider)
	}

	u, err := s.users.GetByEmail(ctx, p.Email)
	switch {
	case err == nil:
		if _, err := s.links.Create(ctx, model.OAuthAccount{
			UserID: u.ID, Provider: p.Provider, ProviderUserID: p.ProviderID,
			Email: p.Email, Name: p.Name, Picture: p.Picture,
		}); err != nil {
			return OAuthResult{}, fmt.Errorf("link provider: %w", err)
		}
		return s.finish(ctx, u, false)
	case !errors.Is(err, repository.ErrNotFound):
		return OAuthResult{}, fmt.Errorf("lookup user by email: %w", err)
	}

	username, err := s.uniqueUsername(ctx, p.Name, p.Provider)
	if err != nil {
		return OAuthResult{}, err
	}
	now := time.Now().UTC()
	id, err := s.users.Create(ctx, repository.NewUser{
		Email:         p.Email,
		Username:      username,
		PasswordHash:  "", // OAuth-only account, no password login
		FullName:      p.Name,
		EmailVerified: true, // asserted by the provider
		LastLoginAt:   &now,
	})
	if err != nil {
		return OAuthResult{}, fmt.Errorf("create user: %w", err)
	}
	if _, err := s.links.Create(ctx, model.OAuthAccount{
		UserID: id, Provider: p.Provider, ProviderUserID: p.ProviderID,
		Email: p.Email, Name: p.Name, Picture: p.Picture,
	}); err != nil {
		return OAuthResult{}, fmt.Errorf("link provider: %w", err)
	}
	u, err = s.users.GetByID(ctx, id)
	if err != nil {
		return OAuthResult{}, fmt.Errorf("reload user: %w", err)
	}

	tokens, err := s.tokens.IssuePair(ctx, u.ID, u.Email, u.Username)
	if err != nil {
		return OAuthResult{}, err
	}
	return OAuthResult{User: u, Tokens: tokens, IsNewUser: true}, nil
}

// finish refreshes last-login and issues tokens for an existing user.
func (s *OAuthService) finish(ctx context.Context, u model.User, isNew bool) (OAuthResult, error) {
	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		return OAuthResult{}, fmt.Errorf("update last login: %w", err)
	}
	tokens, err := s.tokens.IssuePair(ctx, u.ID, u.Email, u.Username)
	if err != nil {
		return OAuthResult{}, err
	}
	return OAuthResult{User: u, Tokens: tokens, IsNewUser: isNew}, nil
}

// uniqueUsername sanitizes the display name to lowercase alphanumerics,
// falls back to "{provider}user" when too short, and probes with a
// numeric suffix until a free username is found.
func (s *OAuthService) uniqueUsername(ctx context.Context, name, provider string) (string, error) {
	base := sanitizeUsername(name)
	if len(base) < 3 {
		base = provider + "user"
	}
	candidate := base
	for i := 1; ; i++ {
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}

func sanitizeUsername(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ListProviders returns the provider links owned by a user.  Nothing
// sensitive is stored on a link, so rows are returned as-is.
func (s *OAuthService) ListProviders(ctx context.Context, userID uint64) ([]model.OAuthAccount, error) {
	return s.links.ListForUser(ctx, userID)
}

// Unlink removes the (user, provider) link.  Unlinking a provider that
// was never linked is ErrNotLinked.
func (s *OAuthService) Unlink(ctx context.Context, userID uint64, provider string) error {
	err := s.links.Delete(ctx, userID, provider)
	if errors.Is(err, repository.ErrConflict) {
		return ErrNotLinked
	}
	return err
}
