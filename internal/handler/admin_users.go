package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/THXDUST/portuga-api/internal/middleware"
    "github.com/THXDUST/portuga-api/internal/queue"
    "github.com/THXDUST/portuga-api/internal/repository"
)

// AdminUserHandler serves the back-office user management endpoints.
// Registered behind the (users, manage) gate.
type AdminUserHandler struct {
    Users *repository.UserRepo
    Roles *repository.RoleRepo
}

func NewAdminUserHandler(users *repository.UserRepo, roles *repository.RoleRepo) *AdminUserHandler {
    return &AdminUserHandler{Users: users, Roles: roles}
}

type userRoleReq struct {
    RoleID int64 `json:"role_id"`
}

type userActiveReq struct {
    IsActive bool `json:"is_active"`
}

// List returns every persisted user with a comma-joined summary of
// their role names. Built-in demo accounts never appear here.
func (h *AdminUserHandler) List(c echo.Context) error {
    ctx, cancel := reqContext(c)
    defer cancel()

    users, err := h.Users.ListWithRoles(ctx)
    if err != nil {
        c.Logger().Errorf("list users failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not load users")
    }

    out := make([]echo.Map, 0, len(users))
    for _, u := range users {
        entry := echo.Map{
            "id":             u.ID,
            "full_name":      u.FullName,
            "email":          u.Email,
            "email_verified": u.EmailVerified,
            "is_active":      u.IsActive,
            "roles":          u.RoleNames,
            "created_at":     u.CreatedAt,
        }
        if u.LastLogin.Valid {
            entry["last_login"] = u.LastLogin.Time
        }
        out = append(out, entry)
    }
    return jsonOK(c, http.StatusOK, echo.Map{"users": out})
}

// Get returns one user with their resolved roles.
func (h *AdminUserHandler) Get(c echo.Context) error {
    userID, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid user id")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return jsonFail(c, http.StatusNotFound, "User not found")
        }
        c.Logger().Errorf("load user failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not load user")
    }
    roles, err := h.Roles.RolesForUser(ctx, userID)
    if err != nil {
        c.Logger().Errorf("load user roles failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not load user")
    }

    entry := echo.Map{
        "id":             u.ID,
        "full_name":      u.FullName,
        "email":          u.Email,
        "email_verified": u.EmailVerified,
        "is_active":      u.IsActive,
        "roles":          roles,
        "created_at":     u.CreatedAt,
    }
    if u.LastLogin.Valid {
        entry["last_login"] = u.LastLogin.Time
    }
    return jsonOK(c, http.StatusOK, echo.Map{"user": entry})
}

// AssignRole grants a role to a user, recording the acting admin as
// the assigner. Assigning an already held role is a no-op.
func (h *AdminUserHandler) AssignRole(c echo.Context) error {
    userID, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid user id")
    }
    var req userRoleReq
    if err := c.Bind(&req); err != nil || req.RoleID <= 0 {
        return jsonFail(c, http.StatusBadRequest, "role_id is required")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if _, err := h.Users.GetByID(ctx, userID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return jsonFail(c, http.StatusNotFound, "User not found")
        }
        c.Logger().Errorf("load user failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not assign role")
    }
    if _, err := h.Roles.RoleByID(ctx, req.RoleID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return jsonFail(c, http.StatusNotFound, "Role not found")
        }
        c.Logger().Errorf("load role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not assign role")
    }

    assignedBy := int64(0)
    if info, ok := middleware.CurrentSession(c); ok {
        assignedBy = info.UserID
    }
    if err := h.Roles.AssignToUser(ctx, userID, req.RoleID, assignedBy); err != nil {
        c.Logger().Errorf("assign role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not assign role")
    }
    h.audit(c, "assign_role", userID, req.RoleID)
    return jsonOK(c, http.StatusOK, echo.Map{"message": "Role assigned"})
}

// RemoveRole revokes a role from a user. Removing a role the user does
// not hold still succeeds.
func (h *AdminUserHandler) RemoveRole(c echo.Context) error {
    userID, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid user id")
    }
    var req userRoleReq
    if err := c.Bind(&req); err != nil || req.RoleID <= 0 {
        return jsonFail(c, http.StatusBadRequest, "role_id is required")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if err := h.Roles.RemoveFromUser(ctx, userID, req.RoleID); err != nil {
        c.Logger().Errorf("remove role failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not remove role")
    }
    h.audit(c, "remove_role", userID, req.RoleID)
    return jsonOK(c, http.StatusOK, echo.Map{"message": "Role removed"})
}

// SetActive activates or deactivates an account. Deactivation takes
// effect on the user's next request: session validation checks the
// flag and destroys the session when it is off.
func (h *AdminUserHandler) SetActive(c echo.Context) error {
    userID, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid user id")
    }
    var req userActiveReq
    if err := c.Bind(&req); err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid body")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if _, err := h.Users.GetByID(ctx, userID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return jsonFail(c, http.StatusNotFound, "User not found")
        }
        c.Logger().Errorf("load user failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not update user")
    }
    if err := h.Users.SetActive(ctx, userID, req.IsActive); err != nil {
        c.Logger().Errorf("set active failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not update user")
    }
    action := "deactivate"
    if req.IsActive {
        action = "activate"
    }
    h.audit(c, action, userID, 0)
    return jsonOK(c, http.StatusOK, echo.Map{"message": "User updated"})
}

// Delete removes a user; sessions and role links cascade away with the
// row.
func (h *AdminUserHandler) Delete(c echo.Context) error {
    userID, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid user id")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if _, err := h.Users.GetByID(ctx, userID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return jsonFail(c, http.StatusNotFound, "User not found")
        }
        c.Logger().Errorf("load user failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not delete user")
    }
    if err := h.Users.Delete(ctx, userID); err != nil {
        c.Logger().Errorf("delete user failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not delete user")
    }
    h.audit(c, "delete", userID, 0)
    return jsonOK(c, http.StatusOK, echo.Map{"message": "User deleted"})
}

func (h *AdminUserHandler) audit(c echo.Context, action string, targetID, roleID int64) {
    ev := queue.SecurityEvent{
        Kind:      queue.EventUserChange,
        IPAddress: c.RealIP(),
        Resource:  "users",
        Action:    action,
        TargetID:  targetID,
    }
    if roleID != 0 {
        ev.Details = "role_id=" + strconv.FormatInt(roleID, 10)
    }
    if info, ok := middleware.CurrentSession(c); ok {
        ev.ActorID = info.UserID
        ev.ActorName = info.FullName
    }
    publishAudit(ev)
}
