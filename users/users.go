package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is the authenticated identity as returned by the backend's profile and register endpoints.
type User struct {
	ID           int64     `json:"id"`                   // Backend primary key
	Username     string    `json:"username"`             // Unique username
	Email        string    `json:"email,omitempty"`      // User's email address
	DateJoined   time.Time `json:"date_joined,omitzero"` // Only present on profile responses
	PasswordHash string    `json:"-"`                    // Only held server side by the fake backend - never serialize
}

// Anonymous reports whether u carries no identity at all.
func (u *User) Anonymous() bool {
	return u == nil || (u.ID == 0 && u.Username == "")
}

// DisplayName prefers the username, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
