package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/THXDUST/portuga-api/internal/middleware"
    "github.com/THXDUST/portuga-api/internal/model"
    "github.com/THXDUST/portuga-api/internal/queue"
    "github.com/THXDUST/portuga-api/internal/repository"
)

// AdminPermissionHandler serves the back-office permission catalog.
// Registered behind the (permissions, manage) gate.
type AdminPermissionHandler struct {
    Permissions *repository.PermissionRepo
}

func NewAdminPermissionHandler(perms *repository.PermissionRepo) *AdminPermissionHandler {
    return &AdminPermissionHandler{Permissions: perms}
}

type permissionReq struct {
    Name        string `json:"name"`
    Description string `json:"description"`
    Resource    string `json:"resource"`
    Action      string `json:"action"`
}

func (req *permissionReq) normalize() string {
    req.Name = strings.TrimSpace(req.Name)
    req.Resource = strings.TrimSpace(strings.ToLower(req.Resource))
    req.Action = strings.TrimSpace(strings.ToLower(req.Action))
    switch {
    case req.Name == "":
        return "Permission name is required"
    case req.Resource == "":
        return "Resource is required"
    case req.Action == "":
        return "Action is required"
    }
    return ""
}

// List returns the permission catalog ordered by resource and action,
// the same order the role editor renders it in. A role_id query param
// narrows the result to one role's grants. The grouped map keys
// permissions by resource for the catalog view.
func (h *AdminPermissionHandler) List(c echo.Context) error {
    ctx, cancel := reqContext(c)
    defer cancel()

    var perms []model.Permission
    var err error
    if raw := c.QueryParam("role_id"); raw != "" {
        roleID, convErr := strconv.ParseInt(raw, 10, 64)
        if convErr != nil {
            return jsonFail(c, http.StatusBadRequest, "Invalid role_id")
        }
        perms, err = h.Permissions.PermissionsForRoles(ctx, []int64{roleID})
    } else {
        perms, err = h.Permissions.List(ctx)
    }
    if err != nil {
        c.Logger().Errorf("list permissions failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not load permissions")
    }

    grouped := map[string][]model.Permission{}
    for _, p := range perms {
        grouped[p.Resource] = append(grouped[p.Resource], p)
    }
    return jsonOK(c, http.StatusOK, echo.Map{"permissions": perms, "grouped": grouped})
}

func (h *AdminPermissionHandler) Create(c echo.Context) error {
    var req permissionReq
    if err := c.Bind(&req); err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid body")
    }
    if msg := req.normalize(); msg != "" {
        return jsonFail(c, http.StatusBadRequest, msg)
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    id, err := h.Permissions.Create(ctx, model.Permission{
        Name:        req.Name,
        Description: req.Description,
        Resource:    req.Resource,
        Action:      req.Action,
    })
    if err != nil {
        if errors.Is(err, repository.ErrNameExists) {
            return jsonFail(c, http.StatusConflict, "A permission with this name already exists")
        }
        c.Logger().Errorf("create permission failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not create permission")
    }
    h.audit(c, "create", id, req.Name)
    return jsonOK(c, http.StatusCreated, echo.Map{"message": "Permission created", "permission_id": id})
}

func (h *AdminPermissionHandler) Update(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid permission id")
    }
    var req permissionReq
    if err := c.Bind(&req); err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid body")
    }
    if msg := req.normalize(); msg != "" {
        return jsonFail(c, http.StatusBadRequest, msg)
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    err = h.Permissions.Update(ctx, model.Permission{
        ID:          id,
        Name:        req.Name,
        Description: req.Description,
        Resource:    req.Resource,
        Action:      req.Action,
    })
    if err != nil {
        if errors.Is(err, repository.ErrNameExists) {
            return jsonFail(c, http.StatusConflict, "A permission with this name already exists")
        }
        c.Logger().Errorf("update permission failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not update permission")
    }
    h.audit(c, "update", id, req.Name)
    return jsonOK(c, http.StatusOK, echo.Map{"message": "Permission updated"})
}

// Delete removes a permission; role_permissions rows cascade with it,
// so revocation takes effect on the next resolution.
func (h *AdminPermissionHandler) Delete(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return jsonFail(c, http.StatusBadRequest, "Invalid permission id")
    }

    ctx, cancel := reqContext(c)
    defer cancel()

    if err := h.Permissions.Delete(ctx, id); err != nil {
        c.Logger().Errorf("delete permission failed: %v", err)
        return jsonFail(c, http.StatusInternalServerError, "Could not delete permission")
    }
    h.audit(c, "delete", id, "")
    return jsonOK(c, http.StatusOK, echo.Map{"message": "Permission deleted"})
}

func (h *AdminPermissionHandler) audit(c echo.Context, action string, targetID int64, details string) {
    ev := queue.SecurityEvent{
        Kind:      queue.EventPermChange,
        IPAddress: c.RealIP(),
        Resource:  "permissions",
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
