package admins

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Account is an administrator account. There is a single admin role; an
// account either exists and can log in or it does not.
type Account struct {
	ID           string     `json:"id"`           // Unique identifier for the account
	Username     string     `json:"username"`     // Unique username, case-sensitive, immutable
	PasswordHash string     `json:"-"`            // bcrypt digest - never serialize
	DisplayName  string     `json:"display_name"` // Name shown in the admin dashboard
	CreatedAt    time.Time  `json:"created_at"`   // When the account was provisioned
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// ValidatePasswordStrength checks if a password meets provisioning
// requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

// HashPassword produces a salted bcrypt digest at the given cost. The cost is
// deliberately high enough that a single verification takes tens of
// milliseconds.
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password against a bcrypt digest.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
