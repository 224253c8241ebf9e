package users

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an account able to log in. Email is unique across every tenant.
type User struct {
	ID           string    `json:"id,omitempty"`         // Unique identifier for the user
	Email        string    `json:"email,omitempty"`      // Lowercased email address
	PasswordHash string    `json:"-"`                    // Salted hash, empty for federation-only accounts - never serialize
	FirstName    string    `json:"first_name,omitempty"` // First name of the user
	LastName     string    `json:"last_name,omitempty"`  // Last name of the user
	TenantID     string    `json:"tenant_id,omitempty"`  // Owning tenant
	Active       bool      `json:"active"`               // Activated accounts may log in
	Admin        bool      `json:"admin"`                // Administrators of their tenant
	CreatedAt    time.Time `json:"created_at,omitempty"` // Date and time when the user registered
	LastLogin    time.Time `json:"last_login,omitempty"` // Last time a session was established
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword produces the bcrypt hash stored for new passwords.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// HasPassword reports whether the account can use local password login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
