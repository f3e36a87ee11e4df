package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/repository"
)

type fakeOAuthLinks struct {
	rows   []model.OAuthAccount
	nextID uint64
}

func (f *fakeOAuthLinks) Create(_ context.Context, a model.OAuthAccount) (uint64, error) {
	for _, r := range f.rows {
		if r.Provider == a.Provider && r.ProviderUserID == a.ProviderUserID {
			return 0, repository.ErrConflict
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, a)
	return a.ID, nil
}

func (f *fakeOAuthLinks) GetByProvider(_ context.Context, provider, providerUserID string) (model.OAuthAccount, error) {
	for _, r := range f.rows {
		if r.Provider == provider && r.ProviderUserID == providerUserID {
			return r, nil
		}
	}
	return model.OAuthAccount{}, repository.ErrNotFound
}

func (f *fakeOAuthLinks) ListForUser(_ context.Context, userID uint64) ([]model.OAuthAccount, error) {
	var out []model.OAuthAccount
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeOAuthLinks) Delete(_ context.Context, userID uint64, provider string) error {
	for i, r := range f.rows {
		if r.UserID == userID && r.Provider == provider {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrConflict
}

type fakeOAuthUsers struct {
	users  map[uint64]*model.User
	nextID uint64
}

func newFakeOAuthUsers(users ...*model.User) *fakeOAuthUsers {
	f := &fakeOAuthUsers{users: make(map[uint64]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeOAuthUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (f *fakeOAuthUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeOAuthUsers) Create(_ context.Context, nu repository.NewUser) (uint64, error) {
	f.nextID++
	f.users[f.nextID] = &model.User{
		ID:            f.nextID,
		Email:         nu.Email,
		Username:      nu.Username,
		PasswordHash:  nu.PasswordHash,
		FullName:      nu.FullName,
		EmailVerified: nu.EmailVerified,
		LastLoginAt:   nu.LastLoginAt,
	}
	return f.nextID, nil
}

func (f *fakeOAuthUsers) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOAuthUsers) UpdateLastLogin(_ context.Context, id uint64) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return nil
}

type fakePairIssuer struct {
	calls int
}

func (f *fakePairIssuer) IssuePair(_ context.Context, userID uint64, email, username string) (auth.TokenPair, error) {
	f.calls++
	return auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func googleProfile() Profile {
	return Profile{
		Provider:   "google",
		ProviderID: "g-123",
		Email:      "ana@example.com",
		Name:       "Ana Ivanova",
	}
}

func TestOAuthCreatesNewUserWithVerifiedEmail(t *testing.T) {
	links := &fakeOAuthLinks{}
	users := newFakeOAuthUsers()
	svc := NewOAuthService(links, users, &fakePairIssuer{})

	res, err := svc.Authenticate(context.Background(), googleProfile())
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.Equal(t, "anaivanova", res.User.Username)
	assert.True(t, res.User.EmailVerified, "provider-asserted email needs no verification round")
	assert.Empty(t, res.User.PasswordHash)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.Len(t, links.rows, 1)
}

func TestOAuthRepeatSignInReusesLink(t *testing.T) {
	links := &fakeOAuthLinks{}
	users := newFakeOAuthUsers()
	svc := NewOAuthService(links, users, &fakePairIssuer{})
	ctx := context.Background()

	first, err := svc.Authenticate(ctx, googleProfile())
	require.NoError(t, err)
	second, err := svc.Authenticate(ctx, googleProfile())
	require.NoError(t, err)

	assert.True(t, first.IsNewUser)
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Len(t, links.rows, 1, "no duplicate link on repeat sign-in")
	assert.Len(t, users.users, 1)
}

func TestOAuthLinksToExistingAccountByEmail(t *testing.T) {
	existing := &model.User{ID: 7, Email: "ana@example.com", Username: "ana"}
	links := &fakeOAuthLinks{}
	svc := NewOAuthService(links, newFakeOAuthUsers(existing), &fakePairIssuer{})

	res, err := svc.Authenticate(context.Background(), googleProfile())
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	assert.EqualValues(t, 7, res.User.ID)
	require.Len(t, links.rows, 1)
	assert.EqualValues(t, 7, links.rows[0].UserID)
}

func TestOAuthRequiresEmail(t *testing.T) {
	svc := NewOAuthService(&fakeOAuthLinks{}, newFakeOAuthUsers(), &fakePairIssuer{})
	p := googleProfile()
	p.Email = ""

	_, err := svc.Authenticate(context.Background(), p)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestOAuthUsernameCollisionProbing(t *testing.T) {
	taken := &model.User{ID: 1, Email: "other@example.com", Username: "anaivanova"}
	svc := NewOAuthService(&fakeOAuthLinks{}, newFakeOAuthUsers(taken), &fakePairIssuer{})

	res, err := svc.Authenticate(context.Background(), googleProfile())
	require.NoError(t, err)
	assert.Equal(t, "anaivanova1", res.User.Username)
}

func TestOAuthUsernameFallbackForShortNames(t *testing.T) {
	svc := NewOAuthService(&fakeOAuthLinks{}, newFakeOAuthUsers(), &fakePairIssuer{})
	p := googleProfile()
	p.Name = "李"

	res, err := svc.Authenticate(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "googleuser", res.User.Username)
}

func TestOAuthListAndUnlink(t *testing.T) {
	links := &fakeOAuthLinks{}
	users := newFakeOAuthUsers()
	svc := NewOAuthService(links, users, &fakePairIssuer{})
	ctx := context.Background()

	res, err := svc.Authenticate(ctx, googleProfile())
	require.NoError(t, err)

	got, err := svc.ListProviders(ctx, res.User.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "google", got[0].Provider)

	require.NoError(t, svc.Unlink(ctx, res.User.ID, "google"))
	assert.ErrorIs(t, svc.Unlink(ctx, res.User.ID, "google"), ErrNotLinked)
	assert.ErrorIs(t, svc.Unlink(ctx, res.User.ID, "facebook"), ErrNotLinked)
}
