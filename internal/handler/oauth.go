package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/iliyamo/travel-planner/internal/config"
	"github.com/iliyamo/travel-planner/internal/middleware"
	"github.com/iliyamo/travel-planner/internal/service"
)

const (
	appleIssuer  = "https://appleid.apple.com"
	appleJWKSURL = "https://appleid.apple.com/auth/keys"

	stateCookie = "oauth_state"
)

// providerConfig pairs an oauth2 client config with the provider's
// userinfo endpoint.
type providerConfig struct {
	oauth       *oauth2.Config
	userinfoURL string
}

// OAuthHandler implements the redirect flows for Google, Facebook and
// Microsoft, and the server-side id_token flow for Apple.  Apple does
// not go through a local redirect: the client posts the identity token
// it received and the server verifies the signature against Apple's
// published JWKS before trusting any claim in it.
type OAuthHandler struct {
	Svc           *service.OAuthService
	providers     map[string]providerConfig
	appleClientID string
	appleKeys     keyfunc.Keyfunc
}

// NewOAuthHandler wires the configured providers.  Providers without a
// client id are left unregistered and their routes answer 404.  The
// Apple JWKS is fetched eagerly so a broken keys URL fails at startup.
func NewOAuthHandler(cfg config.Config, svc *service.OAuthService) (*OAuthHandler, error) {
	h := &OAuthHandler{Svc: svc, providers: map[string]providerConfig{}}

	if cfg.Google.ClientID != "" {
		h.providers["google"] = providerConfig{
			oauth: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			userinfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		}
	}
	if cfg.Facebook.ClientID != "" {
		h.providers["facebook"] = providerConfig{
			oauth: &oauth2.Config{
				ClientID:     cfg.Facebook.ClientID,
				ClientSecret: cfg.Facebook.ClientSecret,
				RedirectURL:  cfg.Facebook.RedirectURL,
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
			userinfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture.data.url",
		}
	}
	if cfg.Microsoft.ClientID != "" {
		h.providers["microsoft"] = providerConfig{
			oauth: &oauth2.Config{
				ClientID:     cfg.Microsoft.ClientID,
				ClientSecret: cfg.Microsoft.ClientSecret,
				RedirectURL:  cfg.Microsoft.RedirectURL,
				Scopes:       []string{"openid", "email", "profile", "User.Read"},
				Endpoint:     microsoft.AzureADEndpoint("common"),
			},
			userinfoURL: "https://graph.microsoft.com/v1.0/me",
		}
	}
	if cfg.Apple.ClientID != "" {
		keys, err := keyfunc.NewDefault([]string{appleJWKSURL})
		if err != nil {
			return nil, fmt.Errorf("fetch apple jwks: %w", err)
		}
		h.appleClientID = cfg.Apple.ClientID
		h.appleKeys = keys
	}
	return h, nil
}

// Begin: redirect the client to the provider's consent page.  The
// anti-CSRF state value is mirrored into a short-lived cookie.
func (h *OAuthHandler) Begin(c echo.Context) error {
	pc, ok := h.providers[c.Param("provider")]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "state generation failed"})
	}
	state := hex.EncodeToString(buf)
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, pc.oauth.AuthCodeURL(state))
}

// Callback: exchange the authorization code, fetch the profile and
// authenticate it against local accounts.
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider := c.Param("provider")
	pc, ok := h.providers[provider]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
	}

	cookie, err := c.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx := c.Request().Context()
	tok, err := pc.oauth.Exchange(ctx, code)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "code exchange failed"})
	}

	profile, err := fetchProfile(ctx, pc, provider, tok)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "profile fetch failed"})
	}

	return h.finish(c, profile)
}

// Apple: verify the posted identity token against Apple's JWKS.  The
// signature, issuer and audience are all checked; an unverified decode
// would let anyone mint arbitrary identities.
func (h *OAuthHandler) Apple(c echo.Context) error {
	if h.appleKeys == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
	}
	var req struct {
		IDToken string `json:"id_token"`
		Name    string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id_token required"})
	}

	claims := &appleClaims{}
	_, err := jwt.ParseWithClaims(req.IDToken, claims, h.appleKeys.Keyfunc,
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(h.appleClientID),
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
	)
	if err != nil || claims.Subject == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid identity token"})
	}

	return h.finish(c, service.Profile{
		Provider:   "apple",
		ProviderID: claims.Subject,
		Email:      claims.Email,
		Name:       req.Name,
	})
}

type appleClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (h *OAuthHandler) finish(c echo.Context, profile service.Profile) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Svc.Authenticate(ctx, profile)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":          toUserPart(res.User),
		"access_token":  res.Tokens.AccessToken,
		"refresh_token": res.Tokens.RefreshToken,
		"provider":      profile.Provider,
		"is_new_user":   res.IsNewUser,
	})
}

// fetchProfile normalizes each provider's userinfo payload.
func fetchProfile(ctx context.Context, pc providerConfig, provider string, tok *oauth2.Token) (service.Profile, error) {
	resp, err := pc.oauth.Client(ctx, tok).Get(pc.userinfoURL)
	if err != nil {
		return service.Profile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return service.Profile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	switch provider {
	case "google":
		var raw struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return service.Profile{}, err
		}
		return service.Profile{Provider: provider, ProviderID: raw.ID, Email: raw.Email, Name: raw.Name, Picture: raw.Picture}, nil
	case "facebook":
		var raw struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture struct {
				Data struct {
					URL string `json:"url"`
				} `json:"data"`
			} `json:"picture"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return service.Profile{}, err
		}
		return service.Profile{Provider: provider, ProviderID: raw.ID, Email: raw.Email, Name: raw.Name, Picture: raw.Picture.Data.URL}, nil
	case "microsoft":
		var raw struct {
			ID                string `json:"id"`
			DisplayName       string `json:"displayName"`
			Mail              string `json:"mail"`
			UserPrincipalName string `json:"userPrincipalName"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return service.Profile{}, err
		}
		email := raw.Mail
		if email == "" {
			email = raw.UserPrincipalName
		}
		return service.Profile{Provider: provider, ProviderID: raw.ID, Email: email, Name: raw.DisplayName}, nil
	}
	return service.Profile{}, fmt.Errorf("unknown provider %q", provider)
}

// Providers: list the caller's linked providers (protected).
func (h *OAuthHandler) Providers(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := reqCtx(c)
	defer cancel()

	links, err := h.Svc.ListProviders(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list providers failed"})
	}

	type linkPart struct {
		Provider string    `json:"provider"`
		Email    string    `json:"email"`
		Name     string    `json:"name"`
		Picture  string    `json:"picture,omitempty"`
		LinkedAt time.Time `json:"linked_at"`
	}
	out := make([]linkPart, 0, len(links))
	for _, l := range links {
		out = append(out, linkPart{Provider: l.Provider, Email: l.Email, Name: l.Name, Picture: l.Picture, LinkedAt: l.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"providers": out})
}

// Unlink: remove one provider link (protected).
func (h *OAuthHandler) Unlink(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(uint64)
	provider := c.Param("provider")

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.Unlink(ctx, uid, provider); err != nil {
		if errors.Is(err, service.ErrNotLinked) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "provider not linked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unlink failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "provider unlinked"})
}
