package server

import (
	"context"

	"dreamio/internal/middleware"
	"dreamio/internal/models"
	"dreamio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired validates the bearer token, loads the account and stores
// userID, role and claims in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization token required"))
		}

		user, claims, err := s.authenticate(c.UserContext(), tokenString)
		if err != nil {
			return respondError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("role", user.Role)
		c.Locals("claims", claims)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// authenticate resolves a token to its account. The role comes from the
// stored account so that role changes apply to existing tokens.
func (s *Server) authenticate(ctx context.Context, tokenString string) (*models.User, *service.Claims, error) {
	claims, err := s.authService.ParseToken(ctx, tokenString)
	if err != nil {
		return nil, nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.StatusForError(err) == fiber.StatusNotFound {
			return nil, nil, models.NewUnauthorizedError("Account no longer exists")
		}
		return nil, nil, err
	}
	return user, claims, nil
}

// optionalUserID returns the caller when a valid bearer token or token query
// parameter is present; it never rejects the request.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		return 0, false
	}
	user, _, err := s.authenticate(c.UserContext(), tokenString)
	if err != nil {
		return 0, false
	}
	return user.ID, true
}

// RoleRequired rejects callers whose role may not perform act on obj.
// Must be placed after AuthRequired so that role is available in locals.
func (s *Server) RoleRequired(obj, act string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(models.Role)
		if !s.enforcer.Can(role, obj, act) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}
