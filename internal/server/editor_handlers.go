package server

import (
	"dreamio/internal/models"
	"dreamio/internal/timeline"

	"github.com/gofiber/fiber/v2"
)

// CreateEditorSession handles POST /api/editor/sessions
// @Summary Start an editor session
// @Description Creates an empty timeline; duration defaults to 120 seconds.
// @Tags editor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{duration=number} false "Timeline length in seconds"
// @Success 201 {object} models.EditorSession
// @Router /editor/sessions [post]
func (s *Server) CreateEditorSession(c *fiber.Ctx) error {
	var req struct {
		Duration float64 `json:"duration"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	session, err := s.editorService.CreateSession(c.UserContext(), currentActor(c), req.Duration)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, session.Version)
	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetEditorSession handles GET /api/editor/sessions/:id
// @Summary Get editor session
// @Tags editor
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} models.EditorSession
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /editor/sessions/{id} [get]
func (s *Server) GetEditorSession(c *fiber.Ctx) error {
	session, err := s.editorService.GetSession(c.UserContext(), currentActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, session.Version)
	return c.JSON(session)
}

// ApplyEditorOperation handles POST /api/editor/sessions/:id/ops
// @Summary Apply a timeline operation
// @Tags editor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param If-Match header string false "Expected version"
// @Param request body timeline.Operation true "Operation"
// @Success 200 {object} service.ApplyResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 412 {object} models.ErrorResponse
// @Router /editor/sessions/{id}/ops [post]
func (s *Server) ApplyEditorOperation(c *fiber.Ctx) error {
	ifMatch, err := parseIfMatch(c)
	if err != nil {
		return nil
	}
	var op timeline.Operation
	if err := c.BodyParser(&op); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid operation body"))
	}

	result, err := s.editorService.Apply(c.UserContext(), currentActor(c), c.Params("id"), op, ifMatch)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, result.Session.Version)
	return c.JSON(result)
}

// DeleteEditorSession handles DELETE /api/editor/sessions/:id
// @Summary Discard an editor session
// @Tags editor
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} object{message=string}
// @Router /editor/sessions/{id} [delete]
func (s *Server) DeleteEditorSession(c *fiber.Ctx) error {
	if err := s.editorService.DeleteSession(c.UserContext(), currentActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Editor session deleted"})
}
