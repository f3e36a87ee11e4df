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

// ResetTokenStore persists hashed single-use reset tokens.
// Implemented by repository.PasswordResetRepo.
type ResetTokenStore interface {
	Replace(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	GetByHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error)
	MarkUsed(ctx context.Context, tokenHash string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// ResetUserStore is the slice of the user repository needed by the
// reset-token lifecycle.
type ResetUserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// ResetService manages short-lived, single-use password-reset tokens.
// Only SHA-256 digests are persisted; the plaintext is returned exactly
// once for out-of-band delivery.
type ResetService struct {
	tokens ResetTokenStore
	users  ResetUserStore
	ttl    time.Duration
}

func NewResetService(tokens ResetTokenStore, users ResetUserStore) *ResetService {
	return &ResetService{tokens: tokens, users: users, ttl: 15 * time.Minute}
}

// Generate invalidates all prior unconsumed tokens for the user and
// creates a new 256-bit random token, returning the plaintext.
func (s *ResetService) Generate(ctx context.Context, userID uint64) (string, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	plain, err := utils.RandomHex(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	expires := time.Now().UTC().Add(s.ttl)
	if err := s.tokens.Replace(ctx, userID, utils.HashToken(plain), expires); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return plain, nil
}

// Validate resolves a plaintext token to its owning user.  Valid means
// found, unexpired and unused; every invalid state returns nil without
// distinguishing the reason, so callers cannot probe token state.
// Only an empty token is reported as a hard input error.
func (s *ResetService) Validate(ctx context.Context, plain string) (*model.User, error) {
	if plain == "" {
		return nil, ErrInvalidInput
	}
	t, err := s.tokens.GetByHash(ctx, utils.HashToken(plain))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}
	if t.UsedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return nil, nil
	}
	u, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &u, nil
}

// MarkUsed consumes the token.  Unknown or already-consumed tokens are
// ErrNotFound.
func (s *ResetService) MarkUsed(ctx context.Context, plain string) error {
	err := s.tokens.MarkUsed(ctx, utils.HashToken(plain))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// CleanupExpired hard-deletes rows past expiry.
func (s *ResetService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.tokens.CleanupExpired(ctx)
}
