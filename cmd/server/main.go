package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-planner/internal/auth"
	"github.com/iliyamo/travel-planner/internal/config"
	"github.com/iliyamo/travel-planner/internal/database"
	"github.com/iliyamo/travel-planner/internal/handler"
	"github.com/iliyamo/travel-planner/internal/middleware"
	"github.com/iliyamo/travel-planner/internal/queue"
	"github.com/iliyamo/travel-planner/internal/repository"
	"github.com/iliyamo/travel-planner/internal/router"
	"github.com/iliyamo/travel-planner/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the shared pool.
	users := repository.NewUserRepo(db)
	refreshTokens := repository.NewRefreshTokenRepo(db)
	attempts := repository.NewLoginAttemptRepo(db)
	resetTokens := repository.NewPasswordResetRepo(db)
	oauthLinks := repository.NewOAuthRepo(db)

	// Token service signs access and refresh tokens under separate
	// secrets; refusal to start without a refresh secret happens here.
	tokens, err := auth.NewTokenService(
		cfg.JWTSecret, cfg.RefreshSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
		refreshTokens,
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	blacklist := service.NewBlacklist()
	tracker := service.NewAttemptTracker(attempts, cfg.LockoutMax, time.Duration(cfg.LockoutMin)*time.Minute)
	verifier := service.NewVerificationService(users)
	resets := service.NewResetService(resetTokens, users)
	mailer := service.NewMailer(cfg.FrontendURL)
	authSvc := service.NewAuthService(users, tokens, verifier, resets, tracker, blacklist, mailer, cfg.BcryptCost)
	oauthSvc := service.NewOAuthService(oauthLinks, users, tokens)

	authHandler := handler.NewAuthHandler(authSvc, tokens, verifier, mailer)
	oauthHandler, err := handler.NewOAuthHandler(cfg, oauthSvc)
	if err != nil {
		log.Fatalf("oauth: %v", err)
	}
	healthHandler := &handler.HealthHandler{DB: db}

	// Redis-backed login limiter; disabled when Redis is unreachable.
	var rateLogin echo.MiddlewareFunc
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled {
		if rdb := config.NewRedisClient(); rdb != nil {
			rateLogin = middleware.NewLoginRateLimiter(rlCfg, rdb)
		}
	}

	// Outbound mail consumer; skipped when no broker is configured.
	if cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartEmailConsumer(); err != nil {
				log.Printf("email consumer stopped: %v", err)
			}
		}()
	}

	// Hourly sweep of expired refresh tokens, reset tokens,
	// verification tokens, stale attempt rows and old blacklist ids.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := refreshTokens.CleanupExpired(ctx); err != nil {
				log.Printf("cleanup refresh tokens: %v", err)
			} else if n > 0 {
				log.Printf("cleanup: removed %d expired refresh tokens", n)
			}
			if _, err := resets.CleanupExpired(ctx); err != nil {
				log.Printf("cleanup reset tokens: %v", err)
			}
			if _, err := verifier.ClearExpired(ctx); err != nil {
				log.Printf("cleanup verification tokens: %v", err)
			}
			if _, err := tracker.CleanupStale(ctx, 24*time.Hour); err != nil {
				log.Printf("cleanup login attempts: %v", err)
			}
			blacklist.Cleanup(time.Duration(cfg.AccessTTLMin) * time.Minute)
			cancel()
		}
	}()

	e := echo.New()
	router.Register(e, router.Deps{
		Health:    healthHandler,
		Auth:      authHandler,
		OAuth:     oauthHandler,
		Tokens:    tokens,
		Blacklist: blacklist,
		RateLogin: rateLogin,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
