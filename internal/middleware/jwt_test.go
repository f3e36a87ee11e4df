package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/service"
)

// memRefreshStore is the minimal refresh store the token service
// needs for issuing pairs in these tests.
type memRefreshStore struct {
	recs map[string]model.RefreshToken
}

func (m *memRefreshStore) Store(_ context.Context, userID uint64, hash string, expiresAt time.Time) error {
	if m.recs == nil {
		m.recs = make(map[string]model.RefreshToken)
	}
	m.recs[hash] = model.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: expiresAt}
	return nil
}

func (m *memRefreshStore) Validate(_ context.Context, hash string) (model.RefreshToken, error) {
	return m.recs[hash], nil
}

func (m *memRefreshStore) Revoke(_ context.Context, hash string) (bool, error) {
	delete(m.recs, hash)
	return true, nil
}

func (m *memRefreshStore) RevokeAllForUser(_ context.Context, userID uint64) (int64, error) {
	return 0, nil
}

func runJWTAuth(t *testing.T, tokens *auth.TokenService, blacklist *service.Blacklist, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTAuth(tokens, blacklist)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c
}

func newTestTokens(t *testing.T, accessTTL time.Duration) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("access-secret", "refresh-secret", accessTTL, time.Hour, &memRefreshStore{})
	require.NoError(t, err)
	return tokens
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	tokens := newTestTokens(t, 15*time.Minute)
	pair, err := tokens.IssuePair(context.Background(), 42, "ana@example.com", "ana")
	require.NoError(t, err)

	rec, c := runJWTAuth(t, tokens, service.NewBlacklist(), "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 42, c.Get(CtxUserID))
	assert.Equal(t, "ana@example.com", c.Get(CtxEmail))
	assert.Equal(t, "ana", c.Get(CtxUsername))
	assert.NotEmpty(t, c.Get(CtxTokenID))
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	tokens := newTestTokens(t, 15*time.Minute)

	rec, _ := runJWTAuth(t, tokens, service.NewBlacklist(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	rec, _ = runJWTAuth(t, tokens, service.NewBlacklist(), "Basic dXNlcjpwdw==")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsGarbageToken(t *testing.T) {
	tokens := newTestTokens(t, 15*time.Minute)

	rec, _ := runJWTAuth(t, tokens, service.NewBlacklist(), "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	tokens := newTestTokens(t, -time.Minute)
	pair, err := tokens.IssuePair(context.Background(), 1, "a@b.c", "a")
	require.NoError(t, err)

	rec, _ := runJWTAuth(t, tokens, service.NewBlacklist(), "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestJWTAuthRejectsBlacklistedToken(t *testing.T) {
	tokens := newTestTokens(t, 15*time.Minute)
	pair, err := tokens.IssuePair(context.Background(), 1, "a@b.c", "a")
	require.NoError(t, err)

	claims, err := tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)

	blacklist := service.NewBlacklist()
	blacklist.Add(claims.ID)

	rec, _ := runJWTAuth(t, tokens, blacklist, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}
