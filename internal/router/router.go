package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/handler"
	"github.com/iliyamo/travel-planner/internal/middleware"
	"github.com/iliyamo/travel-planner/internal/service"
)

// Deps bundles everything the route table needs: the handlers plus the
// token service and blacklist the JWT middleware is built from.
type Deps struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	OAuth     *handler.OAuthHandler
	Tokens    *auth.TokenService
	Blacklist *service.Blacklist
	RateLogin echo.MiddlewareFunc // token-bucket limiter applied to /login
}

// Register wires every route onto the provided Echo instance.
// Unauthenticated credential operations live under /v1/auth; endpoints
// that need a valid access token sit behind the JWTAuth middleware.
func Register(e *echo.Echo, d Deps) {
	// Health check for load balancers and monitoring systems.
	e.GET("/healthz", d.Health.Health)

	// Public credential lifecycle endpoints.
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	// Login carries the Redis token-bucket limiter when one is configured;
	// lockout tracking inside the service handles the rest.
	if d.RateLogin != nil {
		g.POST("/login", d.Auth.Login, d.RateLogin)
	} else {
		g.POST("/login", d.Auth.Login)
	}
	g.POST("/verify-email", d.Auth.VerifyEmail)
	g.POST("/resend-verification", d.Auth.ResendVerification)
	g.POST("/forgot-password", d.Auth.ForgotPassword)
	g.POST("/reset-password", d.Auth.ResetPassword)

	// Social sign-in.  Google, Facebook and Microsoft use the redirect
	// flow; Apple posts its identity token directly.
	g.GET("/:provider", d.OAuth.Begin)
	g.GET("/:provider/callback", d.OAuth.Callback)
	g.POST("/apple", d.OAuth.Apple)

	// Everything below requires a valid, non-blacklisted access token.
	jwtAuth := middleware.JWTAuth(d.Tokens, d.Blacklist)

	p := e.Group("/v1/auth", jwtAuth)
	// Refresh is protected: rotation needs the caller's access claims to
	// stamp email and username into the replacement access token.
	p.POST("/refresh", d.Auth.Refresh)
	p.POST("/logout", d.Auth.Logout)
	p.GET("/providers", d.OAuth.Providers)
	p.DELETE("/providers/:provider", d.OAuth.Unlink)

	// Authenticated profile endpoint.
	me := e.Group("/v1", jwtAuth)
	me.GET("/me", d.Auth.Profile)
}
