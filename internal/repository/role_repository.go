package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/THXDUST/portuga-api/internal/model"
)

type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// RolesForUser joins user_roles to roles for a persisted user.
func (r *RoleRepo) RolesForUser(ctx context.Context, userID int64) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		INNER JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

// RoleByID fetches one role; sql.ErrNoRows when absent.
func (r *RoleRepo) RoleByID(ctx context.Context, id int64) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM roles WHERE id=? LIMIT 1", id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// ListWithUserCounts returns every role with the number of users
// holding it.
func (r *RoleRepo) ListWithUserCounts(ctx context.Context) ([]model.RoleWithUserCount, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
		       COUNT(ur.user_id)
		FROM roles r
		LEFT JOIN user_roles ur ON r.id = ur.role_id
		GROUP BY r.id, r.name, r.description, r.created_at, r.updated_at
		ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoleWithUserCount
	for rows.Next() {
		var rc model.RoleWithUserCount
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.Description, &rc.CreatedAt, &rc.UpdatedAt, &rc.UserCount); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Create inserts a role and returns its ID.
func (r *RoleRepo) Create(ctx context.Context, name, description string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description) VALUES (?,?)", name, description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNameExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// Update renames/redescribes a role.
func (r *RoleRepo) Update(ctx context.Context, id int64, name, description string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, description=? WHERE id=?", name, description, id)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrNameExists
	}
	return err
}

// Delete removes a role unless users still hold it.
func (r *RoleRepo) Delete(ctx context.Context, id int64) error {
	var users int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_roles WHERE role_id=?", id).Scan(&users); err != nil {
		return err
	}
	if users > 0 {
		return ErrConflict
	}
	_, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	return err
}

// SetPermissions replaces a role's grants with the given permission
// ids, atomically.
func (r *RoleRepo) SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO role_permissions (role_id, permission_id) VALUES (?,?)", roleID, pid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AssignToUser links a role to a user, recording who assigned it.
// Re-assigning an existing pair is a no-op (uniqueness on user+role).
func (r *RoleRepo) AssignToUser(ctx context.Context, userID, roleID, assignedBy int64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role_id, assigned_by) VALUES (?,?,?)",
		userID, roleID, assignedBy)
	return err
}

// RemoveFromUser unlinks a role from a user.
func (r *RoleRepo) RemoveFromUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id=? AND role_id=?", userID, roleID)
	return err
}

func collectRoles(rows *sql.Rows) ([]model.Role, error) {
	var out []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
