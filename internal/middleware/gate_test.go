package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/THXDUST/portuga-api/internal/auth"
	"github.com/THXDUST/portuga-api/internal/model"
)

type stubRoleStore struct {
	roles map[int64][]model.Role
}

func (s *stubRoleStore) RolesForUser(_ context.Context, userID int64) ([]model.Role, error) {
	return s.roles[userID], nil
}

func (s *stubRoleStore) RoleByID(_ context.Context, id int64) (model.Role, error) {
	return model.Role{}, sql.ErrNoRows
}

type stubPermStore struct {
	perms map[int64][]model.Permission
}

func (s *stubPermStore) PermissionsForRoles(_ context.Context, roleIDs []int64) ([]model.Permission, error) {
	var out []model.Permission
	for _, id := range roleIDs {
		out = append(out, s.perms[id]...)
	}
	return out, nil
}

func testGate() *Gate {
	roles := &stubRoleStore{roles: map[int64][]model.Role{
		10: {{ID: 1, Name: "Editor"}},
	}}
	perms := &stubPermStore{perms: map[int64][]model.Permission{
		1: {
			{ID: 1, Name: "menu_create", Resource: "menu", Action: "create"},
			{ID: 2, Name: "menu_view", Resource: "menu", Action: "view"},
		},
	}}
	return NewGate(auth.NewPermissionResolver(roles, perms))
}

func gateRequest(t *testing.T, mw echo.MiddlewareFunc, info *auth.SessionInfo) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if info != nil {
		c.Set(sessionContextKey, info)
	}
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	})
	require.NoError(t, handler(c))
	return rec
}

func TestGate_RequireAuthenticated(t *testing.T) {
	t.Parallel()
	g := testGate()

	rec := gateRequest(t, g.RequireAuthenticated(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not authenticated")

	rec = gateRequest(t, g.RequireAuthenticated(), &auth.SessionInfo{UserID: 10})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_RequirePermission(t *testing.T) {
	t.Parallel()
	g := testGate()

	// Anonymous: 401, not 403.
	rec := gateRequest(t, g.RequirePermission("menu", "create"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authenticated with the grant.
	rec = gateRequest(t, g.RequirePermission("menu", "create"), &auth.SessionInfo{UserID: 10})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Holding menu_create does not imply menu_delete.
	rec = gateRequest(t, g.RequirePermission("menu", "delete"), &auth.SessionInfo{UserID: 10})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Permission denied")

	// Authenticated user with no roles at all.
	rec = gateRequest(t, g.RequirePermission("menu", "view"), &auth.SessionInfo{UserID: 99})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGate_RequireAdmin(t *testing.T) {
	t.Parallel()
	g := testGate()

	// An editor has permissions but not the back-office sentinel.
	rec := gateRequest(t, g.RequireAdmin(), &auth.SessionInfo{UserID: 10})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The built-in admin account type is enough on its own.
	rec = gateRequest(t, g.RequireAdmin(), &auth.SessionInfo{UserID: -3, IsBuiltIn: true, UserType: auth.UserTypeAdmin})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = gateRequest(t, g.RequireAdmin(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
