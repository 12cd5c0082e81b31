// Package queue defines message payloads exchanged over the message broker.
package queue

// Security event kinds published to the audit queue.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventLoginBuiltIn   = "login_builtin"
	EventLogout         = "logout"
	EventRoleChange     = "role_change"
	EventPermChange     = "permission_change"
	EventUserChange     = "user_change"
	EventMigrationsRun  = "migrations_run"
)

// SecurityEvent is published whenever something auth- or RBAC-relevant
// happens: logins (and failures), logouts, and every admin mutation of
// users, roles or permissions. It carries enough information for
// downstream consumers to build an audit trail without querying the
// primary database. Passwords and session tokens never appear here.
type SecurityEvent struct {
	Kind       string `json:"kind"`
	ActorID    int64  `json:"actor_id,omitempty"`
	ActorName  string `json:"actor_name,omitempty"`
	Email      string `json:"email,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	Resource   string `json:"resource,omitempty"`
	Action     string `json:"action,omitempty"`
	TargetID   int64  `json:"target_id,omitempty"`
	Details    string `json:"details,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
