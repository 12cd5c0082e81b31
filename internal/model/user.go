package model

import (
	"database/sql"
	"time"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Persisted users always have positive IDs. The three built-in demo
// accounts use small negative IDs and never appear in this table;
// see the auth package.
//
// Fields:
//  ID            – primary key identifier of the user.
//  FullName      – display name shown in the UI.
//  Email         – unique email address (stored as given, matched exactly).
//  PasswordHash  – double-hash credential "bcrypt:hmac"; legacy rows hold bare bcrypt.
//  OAuthProvider – "none" for password accounts; provider name for federated ones.
//  EmailVerified – whether the verification link was followed.
//  IsActive      – soft-delete flag; inactive users cannot log in.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
//  LastLogin     – last successful login, null until the first one.
type User struct {
	ID            int64        // users.id
	FullName      string       // users.full_name
	Email         string       // users.email
	PasswordHash  string       // users.password_hash
	OAuthProvider string       // users.oauth_provider
	EmailVerified bool         // users.email_verified
	IsActive      bool         // users.is_active
	CreatedAt     time.Time    // users.created_at
	UpdatedAt     time.Time    // users.updated_at
	LastLogin     sql.NullTime // users.last_login
}

// UserWithRoles pairs a user row with the names of the roles assigned
// to it. Used by the admin user listing.
type UserWithRoles struct {
	User
	RoleNames []string
}
