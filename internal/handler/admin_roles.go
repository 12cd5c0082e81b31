package handler

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/THXDUST/portuga-api/internal/middleware"
    "github.com/THXDUST/portuga-api/internal/queue"
    "github.com/THXDUST/portuga-api/internal/repository"
)

// AdminRoleHandler serves the back-office role management endpoints.
// Every route is registered behind the permission gate for the
// (roles, manage) pair.
type AdminRoleHandler struct {
    Roles *repository.RoleRepo
    Perms *repository.PermissionRepo
}

func NewAdminRoleHandler(roles *repository.RoleRepo, perms *repository.PermissionRepo) *AdminRoleHandler {
    return &AdminRoleHandler{Roles: roles, Perms: perms}
}

type roleReq struct {
    Name          string  `json:"name"`
    Description   string  `json:"description"`
    PermissionIDs []int64 `json:"permission_ids"`
}

// List returns every role together with how many users hold it.
func (h *AdminRoleHandler) List(c echo.Context) error {
    ctx, cancel := reqContext(c)
    defer cancel()

    roles, err := h.Roles.ListWithUserCounts(ctx)
    if err != nil {
        c.Logger().Errorf("list roles failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not load roles")
    }
    return jsonOK(c, http.StatusOK, echo.Map{"roles": roles})
}

// Get returns one role together with its granted permissions, the
// shape the role editor loads.
func (h *AdminRoleHandler) Get(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid role id")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    role, err := h.Roles.RoleByID(ctx, id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return jsonFail(c, http.StatusNotFound, "Role not found")
        }
        c.Logger().Errorf("load role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not load role")
    }
    perms, err := h.Perms.PermissionsForRoles(ctx, []int64{id})
    if err != nil {
        c.Logger().Errorf("load role permissions failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not load role")
    }
    return jsonOK(c, http.StatusOK, echo.Map{"role": role, "permissions": perms})
}

// Create adds a role and optionally its initial permission set.
func (h *AdminRoleHandler) Create(c echo.Context) error {
    var req roleReq
    if err := c.Bind(&req); err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid body")
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" {
        return jsonFail(c, http.StatusBadRequest, "Role name is required")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    id, err := h.Roles.Create(ctx, req.Name, req.Description)
    if err != nil {
        if errors.Is(err, repository.ErrNameExists) {
            return jsonFail(c, http.StatusConflict, "A role with this name already exists")
        }
        c.Logger().Errorf("create role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not create role")
    }
    if len(req.PermissionIDs) > 0 {
        if err := h.Roles.SetPermissions(ctx, id, req.PermissionIDs); err != nil {
            c.Logger().Errorf("set role permissions failed: %v", err)
            return jsonFail(c, http.StatusInternalServerError, "Role created but permissions could not be saved")
        }
    }
    h.audit(c, queue.EventRoleChange, "create", id, req.Name)
    return jsonOK(c, http.StatusCreated, echo.Map{"message": "Role created", "role_id": id})
}

// Update renames a role or changes its description.
func (h *AdminRoleHandler) Update(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid role id")
    }
    var req roleReq
    if err := c.Bind(&req); err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid body")
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" {
        return jsonFail(c, http.StatusBadRequest, "Role name is required")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if err := h.Roles.Update(ctx, id, req.Name, req.Description); err != nil {
        if errors.Is(err, repository.ErrNameExists) {
            return jsonFail(c, http.StatusConflict, "A role with this name already exists")
        }
        c.Logger().Errorf("update role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not update role")
    }
    h.audit(c, queue.EventRoleChange, "update", id, req.Name)
    return jsonOK(c, http.StatusOK, echo.Map{"message": "Role updated"})
}

// Delete removes a role. Roles still held by users are protected and
// answer 409 instead of cascading.
func (h *AdminRoleHandler) Delete(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid role id")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if err := h.Roles.Delete(ctx, id); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return jsonFail(c, http.StatusConflict, "Role is still assigned to users")
        }
        c.Logger().Errorf("delete role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not delete role")
    }
    h.audit(c, queue.EventRoleChange, "delete", id, "")
    return jsonOK(c, http.StatusOK, echo.Map{"message": "Role deleted"})
}

// SetPermissions replaces the full permission set of a role.
func (h *AdminRoleHandler) SetPermissions(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid role id")
    }
    var req roleReq
    if err := c.Bind(&req); err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid body")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if _, err := h.Roles.RoleByID(ctx, id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return jsonFail(c, http.StatusNotFound, "Role not found")
        }
        c.Logger().Errorf("load role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not update permissions")
    }
    if err := h.Roles.SetPermissions(ctx, id, req.PermissionIDs); err != nil {
        c.Logger().Errorf("set role permissions failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not update permissions")
    }
    h.audit(c, queue.EventPermChange, "set_role_permissions", id, "")
    return jsonOK(c, http.StatusOK, echo.Map{"message": "Permissions updated"})
}

func (h *AdminRoleHandler) audit(c echo.Context, kind, action string, targetID int64, details string) {
    ev := queue.SecurityEvent{
        Kind:      kind,
        IPAddress: c.RealIP(),
        Resource:  "roles",
        Action:    action,
        TargetID:  targetID,
        Details:   details,
    }
    if info, ok := middleware.CurrentSession(c); ok {
        ev.ActorID = info.UserID
        ev.ActorName = info.FullName
    }
    publishAudit(ev)
}

// reqContext derives a bounded context for a single handler's DB work.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func pathID(c echo.Context) (int64, error) {
    return strconv.ParseInt(c.Param("id"), 10, 64)
}
