package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePasswordStrength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"valid", "Abcdef12", true},
		{"too short", "Ab1", false},
		{"no uppercase", "abcdef12", false},
		{"no lowercase", "ABCDEF12", false},
		{"no digit", "Abcdefgh", false},
		{"empty", "", false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ok, msg := ValidatePasswordStrength(tc.password)
			assert.Equal(t, tc.wantOK, ok)
			if !ok {
				assert.NotEmpty(t, msg)
			}
		})
	}
}
