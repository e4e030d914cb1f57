package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound is returned by UserRepository lookups.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// User is a storefront customer.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository persists customers.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// CheckPassword compares password against a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
