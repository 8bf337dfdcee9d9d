// Package service holds the business rules that sit between HTTP handlers and repositories.
package service

import (
	"dreamio/internal/authz"
	"dreamio/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role models.Role
}

// canModerate reports whether a may act on obj regardless of ownership.
func canModerate(e *authz.Enforcer, a Actor, obj string) bool {
	return e.Can(a.Role, obj, authz.ActModerate)
}
