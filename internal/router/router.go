package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/THXDUST/portuga-api/internal/config"
    "github.com/THXDUST/portuga-api/internal/handler"
    "github.com/THXDUST/portuga-api/internal/middleware"
)

// Handlers groups everything the router needs to wire the API surface.
type Handlers struct {
    Auth       *handler.AuthHandler
    Roles      *handler.AdminRoleHandler
    Perms      *handler.AdminPermissionHandler
    Users      *handler.AdminUserHandler
    Migrations *handler.MigrationsHandler
    Gate       *middleware.Gate
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the full API surface. Auth endpoints live under
// /v1/auth and carry the Redis token bucket as a transport-level shield
// against brute-force bursts; the per email+IP login limiter runs
// inside the login handler. Admin endpoints sit behind the permission
// gate, one (resource, manage) pair per group.
func RegisterAPI(e *echo.Echo, h Handlers, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    bucket := middleware.NewTokenBucket(rlCfg, rdb)

    g := e.Group("/v1/auth", bucket)
    g.GET("/csrf", h.Auth.CSRFToken)
    g.POST("/login", h.Auth.Login)
    g.POST("/register", h.Auth.Register)
    g.GET("/verify-email", h.Auth.VerifyEmail)
    g.POST("/logout", h.Auth.Logout)

    e.GET("/v1/me", h.Auth.Me, h.Gate.RequireAuthenticated())

    roles := e.Group("/v1/admin/roles", h.Gate.RequirePermission("roles", "manage"))
    roles.GET("", h.Roles.List)
    roles.GET("/:id", h.Roles.Get)
    roles.POST("", h.Roles.Create)
    roles.PUT("/:id", h.Roles.Update)
    roles.DELETE("/:id", h.Roles.Delete)
    roles.PUT("/:id/permissions", h.Roles.SetPermissions)

    perms := e.Group("/v1/admin/permissions", h.Gate.RequirePermission("permissions", "manage"))
    perms.GET("", h.Perms.List)
    perms.POST("", h.Perms.Create)
    perms.PUT("/:id", h.Perms.Update)
    perms.DELETE("/:id", h.Perms.Delete)

    users := e.Group("/v1/admin/users", h.Gate.RequirePermission("users", "manage"))
    users.GET("", h.Users.List)
    users.GET("/:id", h.Users.Get)
    users.POST("/:id/roles", h.Users.AssignRole)
    users.DELETE("/:id/roles", h.Users.RemoveRole)
    users.PUT("/:id/active", h.Users.SetActive)
    users.DELETE("/:id", h.Users.Delete)

    // Outside the gate: the handler does its own admin-or-token check
    // so fresh installs can bootstrap the schema.
    e.POST("/v1/admin/migrations", h.Migrations.Run)
}
