package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{name: "valid", user: User{Name: "Ann", Email: "ann@example.com", Age: intPtr(30)}},
		{name: "valid without age", user: User{Name: "Ann", Email: "ann@example.com"}},
		{name: "missing name", user: User{Email: "ann@example.com"}, wantErr: ErrNameRequired},
		{name: "missing email", user: User{Name: "Ann"}, wantErr: ErrEmailRequired},
		{name: "bad email", user: User{Name: "Ann", Email: "not-an-email"}, wantErr: ErrInvalidEmail},
		{name: "display-name email", user: User{Name: "Ann", Email: "Ann <ann@example.com>"}, wantErr: ErrInvalidEmail},
		{name: "negative age", user: User{Name: "Ann", Email: "ann@example.com", Age: intPtr(-1)}, wantErr: ErrNegativeAge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUser_Normalize(t *testing.T) {
	u := User{Name: "  Ann ", Email: " Ann@Example.COM "}
	u.Normalize()

	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("red12345"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword("MyPassWord1"), ErrPasswordWeak)
}

func TestUser_RemoveToken(t *testing.T) {
	u := User{Tokens: []string{"a", "b", "c"}}

	assert.True(t, u.RemoveToken("b"))
	assert.Equal(t, []string{"a", "c"}, u.Tokens)
	assert.False(t, u.RemoveToken("zzz"))
	assert.True(t, u.HasToken("a"))
	assert.False(t, u.HasToken("b"))
}
