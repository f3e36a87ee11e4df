// Package auth implements the token signer: stateless issuance and
// verification of HS256 access and refresh tokens under separate
// secrets, with refresh rotation backed by a persistent store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/repository"
	"github.com/iliyamo/travel-planner/internal/utils"
)

var (
	// ErrMissingToken is returned when an empty token string is presented.
	ErrMissingToken = errors.New("token missing")
	// ErrTokenExpired is returned for a token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed covers bad signatures, wrong algorithms and
	// undecodable tokens.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenClaims is returned when a structurally valid token lacks
	// required claims.
	ErrTokenClaims = errors.New("token claims incomplete")
	// ErrTokenInvalid is returned when a refresh token's rotation-id is
	// unknown, expired in the store, or owned by a different subject.
	ErrTokenInvalid = errors.New("refresh token invalid")
)

// AccessClaims are the claims carried by an access token.  Subject is
// the user id, ID (jti) identifies the token for blacklisting.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims carried by a refresh token.  ID holds
// the random rotation-id whose hash is persisted in the refresh store.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken    string
	RefreshToken   string
	AccessExpires  time.Time
	RefreshExpires time.Time
}

// RefreshStore persists hashed rotation-ids.  Implemented by
// repository.RefreshTokenRepo; faked in tests.
type RefreshStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	Validate(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64) (int64, error)
}

// TokenService signs and verifies access and refresh tokens.  The two
// token kinds are signed under different secrets so a leaked access
// secret cannot mint refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	store         RefreshStore
}

// NewTokenService constructs the signer.  An empty refresh secret is a
// configuration error: tokens signed under it would be forgeable, so
// construction fails instead of deferring to the first request.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store RefreshStore) (*TokenService, error) {
	if refreshSecret == "" {
		return nil, errors.New("refresh token secret is not configured")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
	}, nil
}

// IssuePair generates a new rotation-id, persists its hash (which
// atomically revokes all previous refresh tokens for the user) and
// signs a new access/refresh pair.
func (s *TokenService) IssuePair(ctx context.Context, userID uint64, email, username string) (TokenPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)
	rotationID := uuid.NewString()
	sub := strconv.FormatUint(userID, 10)

	if err := s.store.Store(ctx, userID, utils.HashToken(rotationID), refreshExp); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, &AccessClaims{
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	signedAccess, err := access.SignedString(s.accessSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        rotationID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	signedRefresh, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:    signedAccess,
		RefreshToken:   signedRefresh,
		AccessExpires:  accessExp,
		RefreshExpires: refreshExp,
	}, nil
}

// VerifyAccess parses and validates an access token, distinguishing the
// unauthorized causes so handlers can return stable messages.
func (s *TokenService) VerifyAccess(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return s.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenClaims
	}
	return claims, nil
}

// verifyRefresh parses a refresh token under the refresh secret and
// checks the required claims are present.
func (s *TokenService) verifyRefresh(token string) (*RefreshClaims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &RefreshClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return s.refreshSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenClaims
	}
	return claims, nil
}

// Refresh validates a refresh token against the store and re-issues a
// brand-new pair.  The old rotation-id dies as a side effect of the
// new pair's Store call.  Any mismatch between the token and the
// stored record is ErrTokenInvalid.
func (s *TokenService) Refresh(ctx context.Context, refreshToken, email, username string) (TokenPair, error) {
	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return TokenPair{}, ErrTokenClaims
	}

	rec, err := s.store.Validate(ctx, utils.HashToken(claims.ID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrTokenInvalid
		}
		return TokenPair{}, fmt.Errorf("validate refresh token: %w", err)
	}
	if rec.UserID != userID {
		return TokenPair{}, ErrTokenInvalid
	}

	return s.IssuePair(ctx, userID, email, username)
}

// Revoke best-effort deletes the refresh token's stored rotation-id.
// Verification failures yield false rather than an error so logout
// flows never fail on a bad token.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) bool {
	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return false
	}
	ok, err := s.store.Revoke(ctx, utils.HashToken(claims.ID))
	if err != nil {
		return false
	}
	return ok
}

// RevokeAll deletes every refresh record owned by the user and returns
// how many were removed.
func (s *TokenService) RevokeAll(ctx context.Context, userID uint64) (int64, error) {
	return s.store.RevokeAllForUser(ctx, userID)
}
