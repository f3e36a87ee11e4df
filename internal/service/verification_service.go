package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/repository"
	"github.com/iliyamo/travel-planner/internal/utils"
)

// VerificationUserStore is the slice of the user repository needed by
// the email-verification lifecycle.
type VerificationUserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (model.User, error)
	SetVerificationToken(ctx context.Context, id uint64, token string, expires time.Time) error
	ClearVerificationToken(ctx context.Context, id uint64) error
	MarkEmailVerified(ctx context.Context, id uint64) error
	ClearExpiredVerificationTokens(ctx context.Context) (int64, error)
}

// VerificationService manages the email-verification token lifecycle:
// one active opaque token per user with a 24 hour window.
type VerificationService struct {
	users VerificationUserStore
	ttl   time.Duration
}

func NewVerificationService(users VerificationUserStore) *VerificationService {
	return &VerificationService{users: users, ttl: 24 * time.Hour}
}

// Generate creates a fresh random token for the user, overwriting any
// prior one, and returns it for delivery.
func (s *VerificationService) Generate(ctx context.Context, userID uint64) (string, error) {
	token, err := utils.RandomHex(32)
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	expires := time.Now().UTC().Add(s.ttl)
	if err := s.users.SetVerificationToken(ctx, userID, token, expires); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return token, nil
}

// Verify resolves a token to its user and marks the email verified.
// An empty token is a hard input error.  Unknown tokens return nil
// without error; an expired token clears itself and returns nil; a
// token for an already-verified user clears itself and returns the
// user so repeated clicks on the same link stay successful.
func (s *VerificationService) Verify(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidInput
	}
	u, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}
	if u.VerificationExpires != nil && time.Now().UTC().After(*u.VerificationExpires) {
		_ = s.users.ClearVerificationToken(ctx, u.ID)
		return nil, nil
	}
	if u.EmailVerified {
		_ = s.users.ClearVerificationToken(ctx, u.ID)
		return &u, nil
	}
	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	fresh, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return &fresh, nil
}

// Resend issues a fresh token for an unverified account.  Unknown
// emails are ErrNotFound and verified accounts ErrAlreadyVerified;
// the handler masks both behind a generic success response so the
// endpoint cannot be used to probe registered addresses.
func (s *VerificationService) Resend(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if u.EmailVerified {
		return "", ErrAlreadyVerified
	}
	return s.Generate(ctx, u.ID)
}

// ClearExpired bulk-clears stale unconsumed tokens.
func (s *VerificationService) ClearExpired(ctx context.Context) (int64, error) {
	return s.users.ClearExpiredVerificationTokens(ctx)
}
