package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/THXDUST/portuga-api/internal/model"
)

type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

const permissionColumns = "id, name, description, resource, action"

// PermissionsForRoles returns the grants of the given roles. Inner
// joins exclude orphaned role_permissions rows; deduplication across
// roles is the resolver's job.
func (r *PermissionRepo) PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]model.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(roleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(roleIDs))
	for i, id := range roleIDs {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.resource, p.action
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		WHERE rp.role_id IN (`+placeholders+`)
		ORDER BY p.resource, p.action`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// List returns the whole permission catalog ordered by resource then
// action.
func (r *PermissionRepo) List(ctx context.Context) ([]model.Permission, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+permissionColumns+" FROM permissions ORDER BY resource, action")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// Create inserts a permission and returns its ID.
func (r *PermissionRepo) Create(ctx context.Context, p model.Permission) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO permissions (name, description, resource, action) VALUES (?,?,?,?)",
		p.Name, p.Description, p.Resource, p.Action)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNameExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// Update rewrites a permission's fields.
func (r *PermissionRepo) Update(ctx context.Context, p model.Permission) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE permissions SET name=?, description=?, resource=?, action=? WHERE id=?",
		p.Name, p.Description, p.Resource, p.Action, p.ID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrNameExists
	}
	return err
}

// Delete removes a permission; grants referencing it cascade away.
func (r *PermissionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM permissions WHERE id=?", id)
	return err
}

func collectPermissions(rows *sql.Rows) ([]model.Permission, error) {
	var out []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Resource, &p.Action); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
