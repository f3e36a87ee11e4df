package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/repository"
	"github.com/iliyamo/travel-planner/internal/utils"
)

// AuthUserStore is the slice of the user repository needed by the
// orchestrator.
type AuthUserStore interface {
	Create(ctx context.Context, nu repository.NewUser) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	UpdateLastLogin(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// TokenManager issues and revokes token pairs.  Implemented by
// auth.TokenService.
type TokenManager interface {
	IssuePair(ctx context.Context, userID uint64, email, username string) (auth.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) bool
	RevokeAll(ctx context.Context, userID uint64) (int64, error)
}

// VerificationGenerator creates email-verification tokens.
type VerificationGenerator interface {
	Generate(ctx context.Context, userID uint64) (string, error)
}

// ResetManager drives the password-reset token lifecycle.
type ResetManager interface {
	Generate(ctx context.Context, userID uint64) (string, error)
	Validate(ctx context.Context, plain string) (*model.User, error)
	MarkUsed(ctx context.Context, plain string) error
}

// MailSender queues outbound account mail.
type MailSender interface {
	SendVerification(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// RegisterResult bundles everything a successful registration returns.
type RegisterResult struct {
	User              model.User
	Tokens            auth.TokenPair
	VerificationToken string
}

// AuthService orchestrates the register, login, logout and password
// flows by composing the token signer, attempt tracker, verification
// and reset services.
type AuthService struct {
	users      AuthUserStore
	tokens     TokenManager
	verifier   VerificationGenerator
	resets     ResetManager
	tracker    *AttemptTracker
	blacklist  *Blacklist
	mailer     MailSender
	bcryptCost int
}

func NewAuthService(users AuthUserStore, tokens TokenManager, verifier VerificationGenerator,
	resets ResetManager, tracker *AttemptTracker, blacklist *Blacklist, mailer MailSender, bcryptCost int) *AuthService {
	return &AuthService{
		users: users, tokens: tokens, verifier: verifier, resets: resets,
		tracker: tracker, blacklist: blacklist, mailer: mailer, bcryptCost: bcryptCost,
	}
}

// Register creates a user with an unverified email, issues a token pair
// and generates a verification token.  Uniqueness is pre-checked so a
// conflict is identified by field before any password hashing happens;
// the unique indexes remain the backstop under concurrent registration.
func (s *AuthService) Register(ctx context.Context, email, username, password, fullName string) (RegisterResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || username == "" || password == "" {
		return RegisterResult{}, ErrInvalidInput
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return RegisterResult{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return RegisterResult{}, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return RegisterResult{}, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return RegisterResult{}, fmt.Errorf("check username: %w", err)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.users.Create(ctx, repository.NewUser{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return RegisterResult{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		case errors.Is(err, repository.ErrUsernameExists):
			return RegisterResult{}, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
		}
		return RegisterResult{}, fmt.Errorf("create user: %w", err)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("load user: %w", err)
	}
	tokens, err := s.tokens.IssuePair(ctx, u.ID, u.Email, u.Username)
	if err != nil {
		return RegisterResult{}, err
	}
	verification, err := s.verifier.Generate(ctx, u.ID)
	if err != nil {
		return RegisterResult{}, err
	}
	if err := s.mailer.SendVerification(ctx, u.Email, u.FullName, verification); err != nil {
		// Delivery is asynchronous and retried by the client through
		// resend-verification; registration itself has succeeded.
		log.Printf("register: queue verification mail for %s: %v", u.Email, err)
	}

	return RegisterResult{User: u, Tokens: tokens, VerificationToken: verification}, nil
}

// Login authenticates by email or username.  The attempt tracker gates
// the credential check: a locked key fails before any password work,
// failures are tallied and a success clears the tally.  All failure
// modes surface as the same ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, identifier, password, ip string) (model.User, auth.TokenPair, error) {
	if identifier == "" || password == "" {
		return model.User{}, auth.TokenPair{}, ErrInvalidInput
	}
	if st := s.tracker.IsLocked(ctx, identifier, ip); st.Locked {
		// attempts during an active lockout extend the window
		s.tracker.RecordFailure(ctx, identifier, ip)
		return model.User{}, auth.TokenPair{}, ErrUnauthorized
	}

	u, err := s.ValidateCredentials(ctx, identifier, password)
	if err != nil {
		return model.User{}, auth.TokenPair{}, err
	}
	if u == nil {
		s.tracker.RecordFailure(ctx, identifier, ip)
		return model.User{}, auth.TokenPair{}, ErrUnauthorized
	}

	s.tracker.ClearOnSuccess(ctx, identifier, ip)
	tokens, err := s.tokens.IssuePair(ctx, u.ID, u.Email, u.Username)
	if err != nil {
		return model.User{}, auth.TokenPair{}, err
	}
	return *u, tokens, nil
}

// ValidateCredentials looks the identifier up as an email first, then
// as a username, and verifies the password.  A bad identifier and a bad
// password are indistinguishable to the caller: both return nil.  The
// last-login stamp is refreshed on success.
func (s *AuthService) ValidateCredentials(ctx context.Context, identifier, password string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		u, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, nil
	}
	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	return &u, nil
}

// ForgotPassword generates a reset token and queues the reset mail.
// An unknown email is a silent no-op: the caller cannot tell whether
// the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	token, err := s.resets.Generate(ctx, u.ID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, u.Email, u.FullName, token); err != nil {
		return err
	}
	return nil
}

// ResetPassword validates the token, updates the password, then marks
// the token consumed and revokes every refresh session so stolen
// refresh tokens die with the old password.  Invalid, expired or
// already-used tokens are all ErrUnauthorized.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidInput
	}
	u, err := s.resets.Validate(ctx, token)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUnauthorized
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// valid token pointing at a vanished user; treat as auth failure
			return ErrUnauthorized
		}
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.resets.MarkUsed(ctx, token); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if _, err := s.tokens.RevokeAll(ctx, u.ID); err != nil {
		log.Printf("reset password: revoke sessions for user %d: %v", u.ID, err)
	}
	return nil
}

// Logout blacklists the presented access token's id and revokes the
// refresh token.  Both steps are best-effort: a failure in either is
// logged but never blocks the client from completing logout.
func (s *AuthService) Logout(ctx context.Context, accessTokenID, refreshToken string) {
	s.blacklist.Add(accessTokenID)
	if refreshToken != "" && !s.tokens.Revoke(ctx, refreshToken) {
		log.Printf("logout: refresh token was not revoked (already invalid or unknown)")
	}
}
