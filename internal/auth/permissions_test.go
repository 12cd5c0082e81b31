package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/THXDUST/portuga-api/internal/model"
)

type fakeRoleStore struct {
	byUser map[int64][]model.Role
	byID   map[int64]model.Role
	err    error
}

func (f *fakeRoleStore) RolesForUser(_ context.Context, userID int64) ([]model.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

func (f *fakeRoleStore) RoleByID(_ context.Context, id int64) (model.Role, error) {
	if f.err != nil {
		return model.Role{}, f.err
	}
	r, ok := f.byID[id]
	if !ok {
		return model.Role{}, sql.ErrNoRows
	}
	return r, nil
}

type fakePermStore struct {
	byRole map[int64][]model.Permission
	err    error
}

func (f *fakePermStore) PermissionsForRoles(_ context.Context, roleIDs []int64) ([]model.Permission, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Permission
	for _, id := range roleIDs {
		out = append(out, f.byRole[id]...)
	}
	return out, nil
}

var (
	permMenuView   = model.Permission{ID: 1, Name: "menu_view", Resource: "menu", Action: "view"}
	permMenuCreate = model.Permission{ID: 2, Name: "menu_create", Resource: "menu", Action: "create"}
	permAdminPanel = model.Permission{ID: 3, Name: AdminPanelPermission, Resource: "admin_panel", Action: "access"}
)

func TestPermissionKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "menu_view", PermissionKey("menu", "view"))
	assert.Equal(t, "orders_update", PermissionKey("orders", "update"))
}

func TestResolve_DeduplicatesAcrossRoles(t *testing.T) {
	t.Parallel()
	roles := &fakeRoleStore{byUser: map[int64][]model.Role{
		7: {{ID: 1, Name: "Editor"}, {ID: 2, Name: "Viewer"}},
	}}
	perms := &fakePermStore{byRole: map[int64][]model.Permission{
		1: {permMenuView, permMenuCreate},
		2: {permMenuView},
	}}
	r := NewPermissionResolver(roles, perms)

	profile, err := r.Resolve(context.Background(), &SessionInfo{UserID: 7})
	require.NoError(t, err)
	require.Len(t, profile.Permissions, 2, "menu_view granted twice must appear once")
	assert.Len(t, profile.Roles, 2)
}

func TestResolve_DualKeyedMap(t *testing.T) {
	t.Parallel()
	custom := model.Permission{ID: 9, Name: "special_reports", Resource: "reports", Action: "view"}
	roles := &fakeRoleStore{byUser: map[int64][]model.Role{5: {{ID: 3}}}}
	perms := &fakePermStore{byRole: map[int64][]model.Permission{3: {custom}}}
	r := NewPermissionResolver(roles, perms)

	profile, err := r.Resolve(context.Background(), &SessionInfo{UserID: 5})
	require.NoError(t, err)

	assert.True(t, profile.Map["reports_view"], "structured key")
	assert.True(t, profile.Map["special_reports"], "name key")
	assert.True(t, profile.Allowed("reports", "view"))
	assert.False(t, profile.Allowed("reports", "delete"))
}

func TestResolve_NoRoles(t *testing.T) {
	t.Parallel()
	r := NewPermissionResolver(
		&fakeRoleStore{byUser: map[int64][]model.Role{}},
		&fakePermStore{},
	)

	profile, err := r.Resolve(context.Background(), &SessionInfo{UserID: 42})
	require.NoError(t, err)
	assert.Empty(t, profile.Permissions)
	assert.NotNil(t, profile.Map, "map must be empty, never nil")
	assert.False(t, profile.HasAdminAccess)
	assert.False(t, profile.Allowed("menu", "view"))
}

func TestResolve_BuiltInRoleDeleted(t *testing.T) {
	t.Parallel()
	r := NewPermissionResolver(&fakeRoleStore{byID: map[int64]model.Role{}}, &fakePermStore{})

	profile, err := r.Resolve(context.Background(), &SessionInfo{IsBuiltIn: true, RoleID: 99, UserType: UserTypeWaiter})
	require.NoError(t, err, "a deleted role degrades to no permissions, not an error")
	assert.Empty(t, profile.Roles)
	assert.False(t, profile.HasAdminAccess)
}

func TestResolve_BuiltInAdminEscapeHatch(t *testing.T) {
	t.Parallel()
	// Even with zero resolvable permissions the built-in admin keeps
	// back-office access through its account type.
	r := NewPermissionResolver(&fakeRoleStore{byID: map[int64]model.Role{}}, &fakePermStore{})

	profile, err := r.Resolve(context.Background(), &SessionInfo{IsBuiltIn: true, RoleID: 1, UserType: UserTypeAdmin})
	require.NoError(t, err)
	assert.True(t, profile.HasAdminAccess)
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("db down")
	r := NewPermissionResolver(&fakeRoleStore{err: boom}, &fakePermStore{})

	_, err := r.Resolve(context.Background(), &SessionInfo{UserID: 1})
	require.ErrorIs(t, err, boom)
}

func TestHasAdminAccess(t *testing.T) {
	t.Parallel()
	assert.True(t, HasAdminAccess(map[string]bool{AdminPanelPermission: true}, ""))
	assert.True(t, HasAdminAccess(nil, UserTypeAdmin))
	assert.False(t, HasAdminAccess(map[string]bool{"menu_view": true}, UserTypeWaiter))
	assert.False(t, HasAdminAccess(nil, ""))
}

func TestBuildPermissionMap(t *testing.T) {
	t.Parallel()
	m := BuildPermissionMap([]model.Permission{permMenuView, permAdminPanel})
	assert.True(t, m["menu_view"])
	assert.True(t, m["admin_panel_access"])
	assert.False(t, m["menu_delete"])
}
