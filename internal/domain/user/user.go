package user

import (
	"context"
	"errors"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Age          *int      `json:"age,omitempty"`
	Tokens       []string  `json:"-"`
	Avatar       []byte    `json:"-"`
	HasAvatar    bool      `json:"has_avatar"`
	Version      int64     `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const MinPasswordLength = 7

var (
	ErrNameRequired     = errors.New("name is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("email is invalid")
	ErrNegativeAge      = errors.New("age must be a positive number")
	ErrPasswordTooShort = errors.New("password must be at least 7 characters")
	ErrPasswordWeak     = errors.New(`password cannot contain "password"`)
)

// Normalize trims the name and email and lowercases the email.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() error {
	if u.Name == "" {
		return ErrNameRequired
	}
	if u.Email == "" {
		return ErrEmailRequired
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return ErrInvalidEmail
	}
	if u.Age != nil && *u.Age < 0 {
		return ErrNegativeAge
	}
	return nil
}

// ValidatePassword checks a plaintext password before it is hashed.
func ValidatePassword(password string) error {
	password = strings.TrimSpace(password)
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return ErrPasswordWeak
	}
	return nil
}

func (u *User) HasToken(token string) bool {
	return slices.Contains(u.Tokens, token)
}

// RemoveToken drops every entry equal to token and reports whether one was found.
func (u *User) RemoveToken(token string) bool {
	before := len(u.Tokens)
	u.Tokens = slices.DeleteFunc(u.Tokens, func(t string) bool { return t == token })
	return len(u.Tokens) != before
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Update writes name, email, password hash and age when u.Version still
	// matches the stored row, then advances u.Version.
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error

	AppendToken(ctx context.Context, id uuid.UUID, token string) error
	RemoveToken(ctx context.Context, id uuid.UUID, token string) error
	ClearTokens(ctx context.Context, id uuid.UUID) error

	// SetAvatar stores a PNG blob; nil clears it.
	SetAvatar(ctx context.Context, id uuid.UUID, avatar []byte) error
	GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error)
}
