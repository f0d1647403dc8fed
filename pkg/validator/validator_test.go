package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		fields   []string
	}{
		{"valid", "a@example.com", "Passw0rdX", nil},
		{"missing email", "", "Passw0rdX", []string{"email"}},
		{"bad email", "not-an-email", "Passw0rdX", []string{"email"}},
		{"short password", "a@example.com", "Pw0", []string{"password"}},
		{"weak password", "a@example.com", "alllowercase", []string{"password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRegister(tt.email, tt.password)
			assert.Len(t, errs, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestWeakPasswordListsWhatIsMissing(t *testing.T) {
	errs := ValidateRegister("a@example.com", "alllowercase")
	assert.Equal(t, "Password must contain at least one uppercase letter, one number", errs["password"])
}

func TestValidateMask(t *testing.T) {
	assert.False(t, ValidateMask("Fox", "#A1b2C3").HasErrors())

	errs := ValidateMask(" ", "")
	assert.Contains(t, errs, "display_name")
	assert.Contains(t, errs, "color")

	assert.Contains(t, ValidateMask(strings.Repeat("ж", 33), "#000000"), "display_name")
	assert.False(t, ValidateMask(strings.Repeat("ж", 32), "#000000").HasErrors())
}

func TestValidateMaskUpdate(t *testing.T) {
	empty, red := "", "red"

	assert.False(t, ValidateMaskUpdate(nil, nil).HasErrors())
	assert.Contains(t, ValidateMaskUpdate(&empty, nil), "display_name")
	assert.Contains(t, ValidateMaskUpdate(nil, &red), "color")
}

func TestValidateChannel(t *testing.T) {
	assert.False(t, ValidateChannel("general").HasErrors())
	assert.Contains(t, ValidateChannel("x"), "name")
	assert.Contains(t, ValidateChannel("Off Topic"), "name")
	assert.Contains(t, ValidateChannel("  "), "name")
}

func TestValidateNames(t *testing.T) {
	assert.Contains(t, ValidateRoom(""), "title")
	assert.Contains(t, ValidateRoom(strings.Repeat("a", 101)), "title")
	assert.False(t, ValidateRoom("late night").HasErrors())

	assert.Contains(t, ValidateServer("a"), "name")
	assert.False(t, ValidateServer("Hideout").HasErrors())

	assert.Contains(t, ValidateRole(""), "name")
	assert.False(t, ValidateRole("mods").HasErrors())
}
