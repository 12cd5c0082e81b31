package auth

import (
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Account types carried by built-in sessions. Persisted users have no
// account type; the value exists so the fixed admin account can be
// granted blanket admin access without a permission row.
const (
	UserTypeCustomer = "customer"
	UserTypeWaiter   = "waiter"
	UserTypeAdmin    = "admin"
)

// Role IDs referenced by the built-in accounts. They match the rows
// seeded by the schema migrations. The demo customer intentionally has
// no role and therefore no permissions.
const (
	builtInAdminRoleID  = 1
	builtInWaiterRoleID = 2
)

// BuiltInAccount is one of the three fixed demo identities. They are
// defined in code, never stored in the users table, and use small
// negative IDs as a reserved namespace so they can share the int64
// identifier space with persisted users.
type BuiltInAccount struct {
	ID            int64
	Email         string
	FullName      string
	UserType      string
	RoleName      string
	RoleID        int64 // 0 means no role assigned
	EmailVerified bool
	IsActive      bool

	passwordHash []byte // bcrypt of the fixed demo password
}

// The demo credentials are public (customertest / waitertest /
// admintest); hashing them at init keeps the authentication path
// identical to the persisted one. MinCost is enough for throwaway
// demo accounts.
var builtInAccounts = func() []BuiltInAccount {
	accounts := []BuiltInAccount{
		{ID: -1, Email: "customer@test", FullName: "Cliente Teste", UserType: UserTypeCustomer, RoleName: "Cliente", RoleID: 0, EmailVerified: true, IsActive: true},
		{ID: -2, Email: "waiter@test", FullName: "Garçom Teste", UserType: UserTypeWaiter, RoleName: "Atendente", RoleID: builtInWaiterRoleID, EmailVerified: true, IsActive: true},
		{ID: -3, Email: "admin@test", FullName: "Administrador Teste", UserType: UserTypeAdmin, RoleName: "Admin", RoleID: builtInAdminRoleID, EmailVerified: true, IsActive: true},
	}
	passwords := []string{"customertest", "waitertest", "admintest"}
	for i := range accounts {
		h, err := bcrypt.GenerateFromPassword([]byte(passwords[i]), bcrypt.MinCost)
		if err != nil {
			log.Fatalf("auth: hashing built-in credentials: %v", err)
		}
		accounts[i].passwordHash = h
	}
	return accounts
}()

// FindBuiltInAccount returns the built-in account with the given email.
// The list has three entries, so a linear scan is fine.
func FindBuiltInAccount(email string) (BuiltInAccount, bool) {
	for _, a := range builtInAccounts {
		if a.Email == email {
			return a, true
		}
	}
	return BuiltInAccount{}, false
}

// FindBuiltInAccountByID resolves a reserved negative id back to its
// account.
func FindBuiltInAccountByID(id int64) (BuiltInAccount, bool) {
	for _, a := range builtInAccounts {
		if a.ID == id {
			return a, true
		}
	}
	return BuiltInAccount{}, false
}

// IsBuiltInEmail reports whether an email belongs to a built-in account.
func IsBuiltInEmail(email string) bool {
	_, ok := FindBuiltInAccount(email)
	return ok
}

// AuthenticateBuiltIn verifies a plaintext password against a built-in
// account's bcrypt hash. Built-in accounts skip the MAC layer: there is
// no persisted row to bind. The hash is not included in the returned
// value.
func AuthenticateBuiltIn(email, plain string) (BuiltInAccount, bool) {
	a, ok := FindBuiltInAccount(email)
	if !ok {
		return BuiltInAccount{}, false
	}
	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(plain)) != nil {
		return BuiltInAccount{}, false
	}
	a.passwordHash = nil
	return a, true
}

// RedirectURL returns the landing page for the account's user type,
// mirroring the post-login redirects of the web frontend.
func (a BuiltInAccount) RedirectURL() string {
	switch a.UserType {
	case UserTypeAdmin:
		return "/admin.html"
	case UserTypeWaiter:
		return "/pedidos.html"
	default:
		return "/index.html"
	}
}
