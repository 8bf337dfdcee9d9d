package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
	MaxNameLength    = 100
)

// ValidatePassword checks the length bounds of a new password. The minimum
// counts characters, the maximum counts encoded bytes.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if err := GetValidator().Var(email, "email"); err != nil {
		return fmt.Errorf("email must be a valid email address")
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLength)
	}
	return nil
}
