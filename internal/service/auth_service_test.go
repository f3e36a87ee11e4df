package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/repository"
	"github.com/iliyamo/travel-planner/internal/utils"
)

type fakeAuthUsers struct {
	users       map[uint64]*model.User
	nextID      uint64
	createCalls int
}

func newFakeAuthUsers(users ...*model.User) *fakeAuthUsers {
	f := &fakeAuthUsers{users: make(map[uint64]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeAuthUsers) Create(_ context.Context, nu repository.NewUser) (uint64, error) {
	f.createCalls++
	f.nextID++
	f.users[f.nextID] = &model.User{
		ID: f.nextID, Email: nu.Email, Username: nu.Username,
		PasswordHash: nu.PasswordHash, FullName: nu.FullName,
	}
	return f.nextID, nil
}

func (f *fakeAuthUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (f *fakeAuthUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeAuthUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeAuthUsers) UpdateLastLogin(_ context.Context, id uint64) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return nil
}

func (f *fakeAuthUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type fakeTokenManager struct {
	issued      int
	revoked     []string
	revokedAll  []uint64
	revokeReply bool
}

func (f *fakeTokenManager) IssuePair(_ context.Context, userID uint64, email, username string) (auth.TokenPair, error) {
	f.issued++
	return auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (f *fakeTokenManager) Revoke(_ context.Context, refreshToken string) bool {
	f.revoked = append(f.revoked, refreshToken)
	return f.revokeReply
}

func (f *fakeTokenManager) RevokeAll(_ context.Context, userID uint64) (int64, error) {
	f.revokedAll = append(f.revokedAll, userID)
	return 1, nil
}

type fakeVerifier struct {
	tokens map[uint64]string
}

func (f *fakeVerifier) Generate(_ context.Context, userID uint64) (string, error) {
	if f.tokens == nil {
		f.tokens = make(map[uint64]string)
	}
	f.tokens[userID] = "verify-token"
	return "verify-token", nil
}

type fakeResets struct {
	user      *model.User
	generated int
	used      []string
}

func (f *fakeResets) Generate(_ context.Context, userID uint64) (string, error) {
	f.generated++
	return "reset-token", nil
}

func (f *fakeResets) Validate(_ context.Context, plain string) (*model.User, error) {
	if plain == "reset-token" {
		return f.user, nil
	}
	return nil, nil
}

func (f *fakeResets) MarkUsed(_ context.Context, plain string) error {
	f.used = append(f.used, plain)
	f.user = nil // single use
	return nil
}

type fakeMailer struct {
	verifications []string
	resets        []string
}

func (f *fakeMailer) SendVerification(_ context.Context, to, name, token string) error {
	f.verifications = append(f.verifications, to)
	return nil
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, name, token string) error {
	f.resets = append(f.resets, to)
	return nil
}

type authFixture struct {
	svc     *AuthService
	users   *fakeAuthUsers
	tokens  *fakeTokenManager
	resets  *fakeResets
	mailer  *fakeMailer
	tracker *AttemptTracker
}

func newAuthFixture(users ...*model.User) *authFixture {
	f := &authFixture{
		users:  newFakeAuthUsers(users...),
		tokens: &fakeTokenManager{revokeReply: true},
		resets: &fakeResets{},
		mailer: &fakeMailer{},
	}
	f.tracker = NewAttemptTracker(newFakeAttemptStore(), 5, 15*time.Minute)
	f.svc = NewAuthService(f.users, f.tokens, &fakeVerifier{}, f.resets,
		f.tracker, NewBlacklist(), f.mailer, bcrypt.MinCost)
	return f
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := utils.HashPassword(plain, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestRegister(t *testing.T) {
	f := newAuthFixture()

	res, err := f.svc.Register(context.Background(), "Ana@Example.com", "ana", "pass123", "Ana I")
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", res.User.Email, "email is normalized")
	assert.Equal(t, "verify-token", res.VerificationToken)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.False(t, res.User.EmailVerified)
	assert.NotEqual(t, "pass123", f.users.users[res.User.ID].PasswordHash)
	assert.Equal(t, []string{"ana@example.com"}, f.mailer.verifications)
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Register(context.Background(), "", "ana", "pw", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Register(context.Background(), "a@b.c", "ana", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterConflictsIdentifyTheField(t *testing.T) {
	f := newAuthFixture(&model.User{ID: 1, Email: "ana@example.com", Username: "ana"})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "ana@example.com", "other", "pw", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Contains(t, err.Error(), "ana@example.com")

	_, err = f.svc.Register(ctx, "new@example.com", "ana", "pw", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Contains(t, err.Error(), "ana")

	assert.Equal(t, 0, f.users.createCalls, "conflicts are caught before any insert")
	assert.Empty(t, f.mailer.verifications)
}

func TestLoginByEmailAndUsername(t *testing.T) {
	hash := mustHash(t, "pass123")
	f := newAuthFixture(&model.User{ID: 1, Email: "ana@example.com", Username: "ana", PasswordHash: hash})
	ctx := context.Background()

	u, pair, err := f.svc.Login(ctx, "ana@example.com", "pass123", "10.0.0.1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, u.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotNil(t, f.users.users[1].LastLoginAt)

	_, _, err = f.svc.Login(ctx, "ana", "pass123", "10.0.0.1")
	require.NoError(t, err)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	hash := mustHash(t, "pass123")
	f := newAuthFixture(&model.User{ID: 1, Email: "ana@example.com", Username: "ana", PasswordHash: hash})
	ctx := context.Background()

	_, _, err := f.svc.Login(ctx, "ana@example.com", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = f.svc.Login(ctx, "nobody@example.com", "pass123", "10.0.0.1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 0, f.tokens.issued)
}

func TestLoginLockoutBlocksValidCredentials(t *testing.T) {
	hash := mustHash(t, "pass123")
	f := newAuthFixture(&model.User{ID: 1, Email: "ana@example.com", Username: "ana", PasswordHash: hash})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := f.svc.Login(ctx, "ana@example.com", "wrong", "10.0.0.1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	}

	// locked out: even the right password is rejected
	_, _, err := f.svc.Login(ctx, "ana@example.com", "pass123", "10.0.0.1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, f.tokens.issued)

	// a different address is unaffected
	_, _, err = f.svc.Login(ctx, "ana@example.com", "pass123", "10.0.0.2")
	require.NoError(t, err)
}

func TestLoginSuccessResetsTally(t *testing.T) {
	hash := mustHash(t, "pass123")
	f := newAuthFixture(&model.User{ID: 1, Email: "ana@example.com", Username: "ana", PasswordHash: hash})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.svc.Login(ctx, "ana@example.com", "wrong", "10.0.0.1")
	}
	_, _, err := f.svc.Login(ctx, "ana@example.com", "pass123", "10.0.0.1")
	require.NoError(t, err)

	// the tally restarted: four more failures still do not lock
	for i := 0; i < 4; i++ {
		f.svc.Login(ctx, "ana@example.com", "wrong", "10.0.0.1")
	}
	_, _, err = f.svc.Login(ctx, "ana@example.com", "pass123", "10.0.0.1")
	require.NoError(t, err)
}

func TestForgotPasswordMasksUnknownEmail(t *testing.T) {
	f := newAuthFixture(&model.User{ID: 1, Email: "ana@example.com", Username: "ana"})
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Equal(t, 0, f.resets.generated)
	assert.Empty(t, f.mailer.resets)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ana@example.com"))
	assert.Equal(t, 1, f.resets.generated)
	assert.Equal(t, []string{"ana@example.com"}, f.mailer.resets)
}

func TestResetPassword(t *testing.T) {
	user := &model.User{ID: 1, Email: "ana@example.com", Username: "ana", PasswordHash: mustHash(t, "old-pass")}
	f := newAuthFixture(user)
	f.resets.user = &model.User{ID: 1, Email: "ana@example.com"}
	ctx := context.Background()

	require.NoError(t, f.svc.ResetPassword(ctx, "reset-token", "new-pass"))

	assert.True(t, utils.VerifyPassword(f.users.users[1].PasswordHash, "new-pass"))
	assert.Equal(t, []string{"reset-token"}, f.resets.used)
	assert.Equal(t, []uint64{1}, f.tokens.revokedAll, "all sessions die with the old password")

	// the token is single use
	err := f.svc.ResetPassword(ctx, "reset-token", "another-pass")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResetPasswordRejectsBadToken(t *testing.T) {
	f := newAuthFixture()

	err := f.svc.ResetPassword(context.Background(), "bogus", "new-pass")
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = f.svc.ResetPassword(context.Background(), "reset-token", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogout(t *testing.T) {
	f := newAuthFixture()
	blacklist := NewBlacklist()
	f.svc = NewAuthService(f.users, f.tokens, &fakeVerifier{}, f.resets,
		f.tracker, blacklist, f.mailer, bcrypt.MinCost)

	f.svc.Logout(context.Background(), "jti-abc", "refresh-token")

	assert.True(t, blacklist.Contains("jti-abc"))
	assert.Equal(t, []string{"refresh-token"}, f.tokens.revoked)

	// logout without a refresh token still blacklists the access id
	f.svc.Logout(context.Background(), "jti-def", "")
	assert.True(t, blacklist.Contains("jti-def"))
	assert.Len(t, f.tokens.revoked, 1)
}
