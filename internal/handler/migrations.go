package handler

import (
    "crypto/subtle"
    "database/sql"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/THXDUST/portuga-api/internal/auth"
    "github.com/THXDUST/portuga-api/internal/database"
    "github.com/THXDUST/portuga-api/internal/middleware"
    "github.com/THXDUST/portuga-api/internal/queue"
)

// MigrationsHandler applies pending schema migrations on demand.
// Authorization is either an authenticated admin session or the
// deployment token in X-Migrations-Token, so fresh installs can
// bootstrap the schema before any admin account exists.
type MigrationsHandler struct {
    DB       *sql.DB
    Token    string
    Resolver *auth.PermissionResolver
}

func NewMigrationsHandler(db *sql.DB, token string, resolver *auth.PermissionResolver) *MigrationsHandler {
    return &MigrationsHandler{DB: db, Token: token, Resolver: resolver}
}

func (h *MigrationsHandler) Run(c echo.Context) error {
    if !h.authorized(c) {
        return jsonFail(c, http.StatusForbidden, "Permission denied")
    }

    ctx := c.Request().Context()
    if err := database.Migrate(ctx, h.DB); err != nil {
        c.Logger().Errorf("migrations failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Migration run failed")
    }
    version, err := database.MigrationStatus(ctx, h.DB)
    if err != nil {
        c.Logger().Errorf("migration status failed: %v", err)
    }

    ev := queue.SecurityEvent{Kind: queue.EventMigrationsRun, IPAddress: c.RealIP()}
    if info, ok := middleware.CurrentSession(c); ok {
        ev.ActorID = info.UserID
        ev.ActorName = info.FullName
    }
    publishAudit(ev)

    return jsonOK(c, http.StatusOK, echo.Map{
        "message": "Migrations applied",
        "version": version,
    })
}

func (h *MigrationsHandler) authorized(c echo.Context) bool {
    if h.Token != "" {
        supplied := c.Request().Header.Get("X-Migrations-Token")
        if supplied != "" &&
            subtle.ConstantTimeCompare([]byte(supplied), []byte(h.Token)) == 1 {
            return true
        }
    }
    info, ok := middleware.CurrentSession(c)
    if !ok {
        return false
    }
    profile, err := h.Resolver.Resolve(c.Request().Context(), info)
    if err != nil {
        return false
    }
    return profile.HasAdminAccess
}
