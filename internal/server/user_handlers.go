package server

import (
	"dreamio/internal/models"
	"dreamio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// UpdateUser handles PUT /api/users/:id
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body service.UpdateUserInput true "Fields to change"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdateUserInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/users/:id
// @Summary Delete user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// GetAdminStats handles GET /api/admin/stats
// @Summary Dashboard counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.AdminStats
// @Router /admin/stats [get]
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.statsService.Collect(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
