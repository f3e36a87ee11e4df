package middleware // reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/service"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxUserID   = "user_id"
	CtxEmail    = "email"
	CtxUsername = "username"
	CtxTokenID  = "token_id"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects its claims into the request context.  A token that
// verifies cryptographically is still rejected when its id sits on the
// logout blacklist.  The three failure causes (missing, expired,
// malformed) map to distinct stable messages without leaking anything
// further.
func JWTAuth(tokens *auth.TokenService, blacklist *service.Blacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := tokens.VerifyAccess(raw)
			if err != nil {
				msg := "invalid token"
				switch {
				case errors.Is(err, auth.ErrMissingToken):
					msg = "missing bearer token"
				case errors.Is(err, auth.ErrTokenExpired):
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}
			if blacklist.Contains(claims.ID) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			userID, err := strconv.ParseUint(claims.Subject, 10, 64)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, userID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxUsername, claims.Username)
			c.Set(CtxTokenID, claims.ID)
			return next(c)
		}
	}
}
