package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/THXDUST/portuga-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,full_name,email,password_hash,oauth_provider,email_verified,is_active,created_at,updated_at,last_login"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.OAuthProvider,
		&u.EmailVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	return u, err
}

// Create inserts a user and returns its ID. The password hash is
// produced by the caller (auth.CredentialHasher) so this layer stays
// free of crypto concerns.
func (r *UserRepo) Create(ctx context.Context, fullName, email, passwordHash, verificationToken string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (full_name, email, password_hash, verification_token, email_verified) VALUES (?,?,?,?,FALSE)",
		fullName, email, passwordHash, verificationToken)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByEmail fetches a user by exact email match.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// TouchLastLogin stamps users.last_login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login=NOW() WHERE id=?", userID)
	return err
}

// UpdatePasswordHash replaces a user's stored credential (rehash of a
// legacy hash, or a password change).
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, userID)
	return err
}

// VerifyEmail flips email_verified for the row holding the token and
// clears the token. Returns false when no row matched.
func (r *UserRepo) VerifyEmail(ctx context.Context, token string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email_verified=TRUE, verification_token=NULL WHERE verification_token=?", token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetActive toggles the soft-delete flag. Deactivating a user makes
// every session validation for them fail closed on the next request.
func (r *UserRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, userID)
	return err
}

// Delete removes the row permanently. Sessions, role assignments and
// grants cascade at the schema level.
func (r *UserRepo) Delete(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", userID)
	return err
}

// ListWithRoles returns every user together with its role names,
// newest first.
func (r *UserRepo) ListWithRoles(ctx context.Context) ([]model.UserWithRoles, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.id, u.full_name, u.email, u.email_verified, u.is_active,
		       u.created_at, u.updated_at, u.last_login,
		       COALESCE(GROUP_CONCAT(r.name ORDER BY r.name SEPARATOR ','), '')
		FROM users u
		LEFT JOIN user_roles ur ON u.id = ur.user_id
		LEFT JOIN roles r ON ur.role_id = r.id
		GROUP BY u.id
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserWithRoles
	for rows.Next() {
		var u model.UserWithRoles
		var names string
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.EmailVerified, &u.IsActive,
			&u.CreatedAt, &u.UpdatedAt, &u.LastLogin, &names); err != nil {
			return nil, err
		}
		if names != "" {
			u.RoleNames = strings.Split(names, ",")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
