package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/THXDUST/portuga-api/internal/auth"
	"github.com/THXDUST/portuga-api/internal/config"
	"github.com/THXDUST/portuga-api/internal/database"
	"github.com/THXDUST/portuga-api/internal/handler"
	"github.com/THXDUST/portuga-api/internal/middleware"
	"github.com/THXDUST/portuga-api/internal/queue"
	"github.com/THXDUST/portuga-api/internal/repository"
	"github.com/THXDUST/portuga-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	rlCfg := config.LoadRateLimitConfig()
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)
	attempts := repository.NewLoginAttemptRepo(db)

	hasher := auth.NewCredentialHasher(cfg.EncryptionKey, cfg.BcryptCost)
	authn := auth.NewAuthenticator(users, hasher)
	sessionMgr := auth.NewSessionManager(sessions, users, cfg.EncryptionKey, cfg.SessionTTLDays, cfg.RememberTTLDays)
	resolver := auth.NewPermissionResolver(roles, perms)
	limiter := auth.NewLoginLimiter(attempts, cfg.LoginMaxAttempts, cfg.LoginWindowMin)
	gate := middleware.NewGate(resolver)

	e := echo.New()
	e.Use(middleware.SessionContext(sessionMgr))

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, hasher, authn, sessionMgr, resolver, limiter),
		Roles:      handler.NewAdminRoleHandler(roles, perms),
		Perms:      handler.NewAdminPermissionHandler(perms),
		Users:      handler.NewAdminUserHandler(users, roles),
		Migrations: handler.NewMigrationsHandler(db, cfg.MigrationsToken, resolver),
		Gate:       gate,
	}, rlCfg, rdb)

	// Background sweep of expired sessions and stale login attempts.
	go func() {
		interval := time.Duration(cfg.CleanupIntervalMin) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := sessionMgr.CleanupExpired(sweepCtx); err != nil {
				log.Printf("session cleanup: %v", err)
			} else if n > 0 {
				log.Printf("session cleanup: removed %d expired sessions", n)
			}
			cutoff := time.Now().Add(-time.Duration(cfg.LoginWindowMin) * time.Minute)
			if err := attempts.DeleteOlderThan(sweepCtx, cutoff); err != nil {
				log.Printf("login attempt cleanup: %v", err)
			}
			cancel()
		}
	}()

	// Audit trail consumer; reconnects on its own when the broker drops.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
