// Package auth implements the credential store, session manager and
// permission resolver behind every protected endpoint. It deliberately
// knows nothing about HTTP: handlers and middleware translate its
// errors into response envelopes.
package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication and authorization failures.
// ErrInvalidCredentials covers both unknown email and wrong password:
// callers must never learn which one it was.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account has been deactivated")
	ErrSessionExpired     = errors.New("session expired")
	ErrUnauthenticated    = errors.New("not authenticated")
)

// FederatedLoginError is returned when a password login is attempted
// against an account provisioned through an OAuth provider. Such
// accounts have no usable password credential.
type FederatedLoginError struct {
	Provider string
}

func (e *FederatedLoginError) Error() string {
	return fmt.Sprintf("this account uses %s login", e.Provider)
}
