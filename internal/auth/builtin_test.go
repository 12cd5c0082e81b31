package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateBuiltIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		email    string
		password string
		wantOK   bool
		wantType string
	}{
		{"admin ok", "admin@test", "admintest", true, UserTypeAdmin},
		{"waiter ok", "waiter@test", "waitertest", true, UserTypeWaiter},
		{"customer ok", "customer@test", "customertest", true, UserTypeCustomer},
		{"wrong password", "admin@test", "nope", false, ""},
		{"swapped password", "admin@test", "waitertest", false, ""},
		{"unknown email", "nobody@test", "admintest", false, ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			acct, ok := AuthenticateBuiltIn(tc.email, tc.password)
			require.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.wantType, acct.UserType)
				assert.Nil(t, acct.passwordHash, "hash must be stripped from the result")
			}
		})
	}
}

func TestBuiltInAccounts_Identity(t *testing.T) {
	t.Parallel()

	admin, ok := FindBuiltInAccount("admin@test")
	require.True(t, ok)
	assert.Equal(t, int64(-3), admin.ID)
	assert.Equal(t, int64(builtInAdminRoleID), admin.RoleID)
	assert.True(t, admin.EmailVerified)

	customer, ok := FindBuiltInAccount("customer@test")
	require.True(t, ok)
	assert.Equal(t, int64(-1), customer.ID)
	assert.Zero(t, customer.RoleID, "demo customer has no role")

	assert.True(t, IsBuiltInEmail("waiter@test"))
	assert.False(t, IsBuiltInEmail("waiter@example.com"))
}

func TestBuiltInAccount_RedirectURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/admin.html", BuiltInAccount{UserType: UserTypeAdmin}.RedirectURL())
	assert.Equal(t, "/pedidos.html", BuiltInAccount{UserType: UserTypeWaiter}.RedirectURL())
	assert.Equal(t, "/index.html", BuiltInAccount{UserType: UserTypeCustomer}.RedirectURL())
}
