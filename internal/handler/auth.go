package handler

import (
	"context"  // context with cancellation for service calls
	"errors"   // sentinel error matching
	"log"      // server-side logging of masked outcomes
	"net/http" // HTTP status codes
	"strings"  // input normalization
	"time"     // timeouts and response timestamps

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/travel-planner/internal/auth"       // token signer
	"github.com/iliyamo/travel-planner/internal/middleware" // context keys
	"github.com/iliyamo/travel-planner/internal/model"      // entity structs
	"github.com/iliyamo/travel-planner/internal/service"    // auth core services
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth         *service.AuthService
	Tokens       *auth.TokenService
	Verification *service.VerificationService
	Mailer       service.MailSender
}

func NewAuthHandler(a *service.AuthService, t *auth.TokenService, v *service.VerificationService, m service.MailSender) *AuthHandler {
	return &AuthHandler{Auth: a, Tokens: t, Verification: v, Mailer: m}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type emailReq struct {
	Email string `json:"email"`
}
type verifyReq struct {
	Token string `json:"token"`
}
type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type tokenPart struct {
	AccessToken    string    `json:"access_token"`
	AccessExpires  time.Time `json:"access_expires"`
	RefreshToken   string    `json:"refresh_token"`
	RefreshExpires time.Time `json:"refresh_expires"`
}
type userPart struct {
	ID            uint64     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FullName      string     `json:"full_name"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID: u.ID, Email: u.Email, Username: u.Username, FullName: u.FullName,
		EmailVerified: u.EmailVerified, LastLoginAt: u.LastLoginAt, CreatedAt: u.CreatedAt,
	}
}

func toTokenPart(p auth.TokenPair) tokenPart {
	return tokenPart{
		AccessToken: p.AccessToken, AccessExpires: p.AccessExpires,
		RefreshToken: p.RefreshToken, RefreshExpires: p.RefreshExpires,
	}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register: create user, return tokens and the verification token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, req.Email, req.Username, req.Password, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/username/password required"})
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user":               toUserPart(res.User),
		"tokens":             toTokenPart(res.Tokens),
		"verification_token": res.VerificationToken,
	})
}

// Login: verify credentials behind the lockout gate and return a pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, tokens, err := h.Auth.Login(ctx, identifier, req.Password, c.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier/password required"})
		case errors.Is(err, service.ErrUnauthorized):
			// locked accounts and wrong credentials share one message
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":   toUserPart(u),
		"tokens": toTokenPart(tokens),
	})
}

// Refresh: rotate the refresh token and return a brand-new pair.  The
// route sits behind JWTAuth, so the bearer's claims supply the email
// and username re-signed into the new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	email, _ := c.Get(middleware.CtxEmail).(string)
	username, _ := c.Get(middleware.CtxUsername).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Tokens.Refresh(ctx, strings.TrimSpace(req.RefreshToken), email, username)
	if err != nil {
		msg := "invalid refresh token"
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			msg = "refresh token missing"
		case errors.Is(err, auth.ErrTokenExpired):
			msg = "refresh token expired"
		case errors.Is(err, auth.ErrTokenMalformed), errors.Is(err, auth.ErrTokenClaims), errors.Is(err, auth.ErrTokenInvalid):
			// generic message, causes stay server-side
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
	}

	return c.JSON(http.StatusOK, toTokenPart(pair))
}

// Logout: blacklist the current access token's id and revoke the
// refresh token.  Both steps are best-effort; the response is always
// a success so clients can finish logging out.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req) // missing body just skips refresh revocation

	jti, _ := c.Get(middleware.CtxTokenID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	h.Auth.Logout(ctx, jti, strings.TrimSpace(req.RefreshToken))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// VerifyEmail: consume a verification token.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Verification.Verify(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	if u == nil {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"message": "invalid or expired verification token",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "email verified",
		"user":    toUserPart(*u),
	})
}

// ResendVerification: always responds 200 so the endpoint cannot be
// used to probe which addresses are registered; the true outcome is
// logged server-side.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqCtx(c)
	defer cancel()

	token, err := h.Verification.Resend(ctx, email)
	if err != nil {
		log.Printf("resend verification for %s: %v", email, err)
	} else if err := h.Mailer.SendVerification(ctx, email, "", token); err != nil {
		log.Printf("resend verification mail for %s: %v", email, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "if the address is registered and unverified, a new verification link has been sent",
	})
}

// ForgotPassword: always responds 200 regardless of whether the email
// is known.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, email); err != nil {
		log.Printf("forgot password for %s: %v", email, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "if the address is registered, a password reset link has been sent",
	})
}

// ResetPassword: consume a reset token and set the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Auth.ResetPassword(ctx, strings.TrimSpace(req.Token), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and password required"})
		case errors.Is(err, service.ErrUnauthorized):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired reset token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Profile: return the current bearer's claims (protected).
func (h *AuthHandler) Profile(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  c.Get(middleware.CtxUserID),
		"email":    c.Get(middleware.CtxEmail),
		"username": c.Get(middleware.CtxUsername),
	})
}
