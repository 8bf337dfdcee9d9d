package server

import (
	"dreamio/internal/models"
	"dreamio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account. Accepts JSON or form fields.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration"
// @Success 201 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles POST /api/auth/login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} object{token=string,role=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	token, user, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"role":  user.Role,
		"user":  user,
	})
}

// GetProfile handles GET /api/auth/profile
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentActor(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UploadProfileImage handles POST /api/auth/upload-profile-image
// @Summary Upload profile image
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param profileImage formData file true "Image, 5 MB max"
// @Success 200 {object} object{success=bool,message=string,profileImage=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/upload-profile-image [post]
func (s *Server) UploadProfileImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("profileImage")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No image uploaded"))
	}

	stored, err := s.userService.UploadProfileImage(c.UserContext(), currentActor(c).ID, fh)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Profile image updated",
		"profileImage": stored,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revokes the presented token until it expires.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("claims").(*service.Claims)
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}
