// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is the account type chosen at registration.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleDesigner Role = "Designer"
	RoleUser     Role = "User"
)

// Roles lists every accepted role in canonical spelling.
var Roles = []Role{RoleAdmin, RoleDesigner, RoleUser}

// ParseRole matches s case-insensitively against the known roles.
// An empty string resolves to RoleUser.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RoleUser, true
	}
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// User represents a registered account.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Email        string         `gorm:"size:255;not null;uniqueIndex:idx_users_email_active,where:deleted_at IS NULL" json:"email"`
	Password     string         `gorm:"not null" json:"-"`
	Role         Role           `gorm:"size:20;not null;default:User;index" json:"role"`
	ProfileImage string         `gorm:"size:500" json:"profileImage,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
