package model

import "time"

// Role represents a row in the `roles` table: a named bundle of
// permissions. Users gain permissions only through roles (many-to-many
// on both sides).
type Role struct {
	ID          int64     `json:"id"`          // roles.id
	Name        string    `json:"name"`        // roles.name (unique)
	Description string    `json:"description"` // roles.description
	CreatedAt   time.Time `json:"created_at"`  // roles.created_at
	UpdatedAt   time.Time `json:"updated_at"`  // roles.updated_at
}

// RoleWithUserCount augments a role with the number of users holding
// it, for the admin listing.
type RoleWithUserCount struct {
	Role
	UserCount int64 `json:"user_count"`
}

// Permission represents a row in the `permissions` table. Resource and
// Action are free-form strings, not an enum: the permission catalog is
// admin-curated data and can grow without code changes. Name is a
// unique human-readable identifier kept for legacy lookups.
type Permission struct {
	ID          int64  `json:"id"`          // permissions.id
	Name        string `json:"name"`        // permissions.name (unique)
	Description string `json:"description"` // permissions.description
	Resource    string `json:"resource"`    // permissions.resource
	Action      string `json:"action"`      // permissions.action
}

// UserRole links a user to a role and records who made the assignment
// and when. Unique on (user_id, role_id).
type UserRole struct {
	UserID     int64     // user_roles.user_id
	RoleID     int64     // user_roles.role_id
	AssignedBy int64     // user_roles.assigned_by
	AssignedAt time.Time // user_roles.assigned_at
}

// RolePermission links a role to a permission. Unique on
// (role_id, permission_id).
type RolePermission struct {
	RoleID       int64 // role_permissions.role_id
	PermissionID int64 // role_permissions.permission_id
}
