package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/THXDUST/portuga-api/internal/model"
)

// AdminPanelPermission is the sentinel permission name that grants
// access to the back-office. It is seeded by the schema migrations.
const AdminPanelPermission = "admin_panel_access"

// PermissionKey builds the "{resource}_{action}" lookup key. Every call
// site goes through this function; the convention string exists nowhere
// else.
func PermissionKey(resource, action string) string {
	return resource + "_" + action
}

// RoleStore resolves role assignments. Implemented by
// repository.RoleRepo.
type RoleStore interface {
	RolesForUser(ctx context.Context, userID int64) ([]model.Role, error)
	RoleByID(ctx context.Context, id int64) (model.Role, error)
}

// PermissionStore resolves role grants. Implemented by
// repository.PermissionRepo.
type PermissionStore interface {
	PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]model.Permission, error)
}

// AccessProfile is the resolved permission set of one identity for one
// request. Middleware caches it on the echo context so a request never
// resolves twice.
type AccessProfile struct {
	Roles          []model.Role
	Permissions    []model.Permission
	Map            map[string]bool
	HasAdminAccess bool
}

// Allowed reports whether the profile grants an action on a resource.
func (p *AccessProfile) Allowed(resource, action string) bool {
	return p.Map[PermissionKey(resource, action)]
}

// PermissionResolver computes effective permissions through the
// Role→Permission graph. Persisted users and built-in accounts resolve
// through the same tables; only the role lookup differs (join versus
// the account's fixed role id).
type PermissionResolver struct {
	Roles       RoleStore
	Permissions PermissionStore
}

func NewPermissionResolver(roles RoleStore, perms PermissionStore) *PermissionResolver {
	return &PermissionResolver{Roles: roles, Permissions: perms}
}

// Resolve computes the access profile for a session identity. An
// identity with no roles gets an empty (never nil) map and no admin
// access — unless it is the built-in admin account, whose user type is
// a deliberate escape hatch.
func (r *PermissionResolver) Resolve(ctx context.Context, info *SessionInfo) (*AccessProfile, error) {
	roles, err := r.rolesFor(ctx, info)
	if err != nil {
		return nil, err
	}
	perms, err := r.permissionsFor(ctx, roles)
	if err != nil {
		return nil, err
	}
	permMap := BuildPermissionMap(perms)
	return &AccessProfile{
		Roles:          roles,
		Permissions:    perms,
		Map:            permMap,
		HasAdminAccess: HasAdminAccess(permMap, info.UserType),
	}, nil
}

func (r *PermissionResolver) rolesFor(ctx context.Context, info *SessionInfo) ([]model.Role, error) {
	if info.IsBuiltIn {
		if info.RoleID == 0 {
			return nil, nil
		}
		role, err := r.Roles.RoleByID(ctx, info.RoleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Role was deleted out from under the account.
				return nil, nil
			}
			return nil, fmt.Errorf("resolve built-in role: %w", err)
		}
		return []model.Role{role}, nil
	}
	roles, err := r.Roles.RolesForUser(ctx, info.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user roles: %w", err)
	}
	return roles, nil
}

// permissionsFor unions the grants of all roles, deduplicated by
// permission id and ordered by (resource, action) so results are
// deterministic regardless of role order.
func (r *PermissionResolver) permissionsFor(ctx context.Context, roles []model.Role) ([]model.Permission, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
	}
	raw, err := r.Permissions.PermissionsForRoles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve role permissions: %w", err)
	}
	seen := make(map[int64]bool, len(raw))
	perms := raw[:0]
	for _, p := range raw {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Resource != perms[j].Resource {
			return perms[i].Resource < perms[j].Resource
		}
		return perms[i].Action < perms[j].Action
	})
	return perms, nil
}

// BuildPermissionMap inserts two keys per permission: the structured
// "{resource}_{action}" form and the permission's unique name. Some
// call sites check one, some the other; both must resolve identically,
// so the dual insert happens here and only here.
func BuildPermissionMap(perms []model.Permission) map[string]bool {
	m := make(map[string]bool, 2*len(perms))
	for _, p := range perms {
		m[PermissionKey(p.Resource, p.Action)] = true
		if p.Name != "" {
			m[p.Name] = true
		}
	}
	return m
}

// HasAdminAccess grants the back-office when the sentinel permission is
// present, or when the account-type hint says "admin" — the latter only
// ever applies to the built-in admin account.
func HasAdminAccess(permMap map[string]bool, accountType string) bool {
	return permMap[AdminPanelPermission] || accountType == UserTypeAdmin
}
