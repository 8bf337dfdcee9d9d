package server

import (
	"mime/multipart"

	"dreamio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// optionalFile returns the uploaded file for field, or nil when none was sent.
func optionalFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return fh
}

func eventInput(c *fiber.Ctx) service.EventInput {
	return service.EventInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Date:        c.FormValue("date"),
		Location:    c.FormValue("location"),
		Cover:       optionalFile(c, "coverImage"),
		Video:       optionalFile(c, "videoFile"),
	}
}

// GetEvents handles GET /api/events
// @Summary List events
// @Description All events, newest date first.
// @Tags events
// @Produce json
// @Success 200 {array} models.Event
// @Router /events [get]
func (s *Server) GetEvents(c *fiber.Ctx) error {
	events, err := s.eventService.ListEvents(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(events)
}

// GetEvent handles GET /api/events/:id
// @Summary Get event
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} models.Event
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [get]
func (s *Server) GetEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	event, err := s.eventService.GetEvent(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, event.Version)
	return c.JSON(event)
}

// CreateEvent handles POST /api/events and POST /api/events/create
// @Summary Create event
// @Tags events
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param date formData string true "RFC3339 or YYYY-MM-DD"
// @Param location formData string true "Location"
// @Param coverImage formData file true "Cover image"
// @Param videoFile formData file false "Video"
// @Success 201 {object} models.Event
// @Failure 400 {object} models.ErrorResponse
// @Router /events [post]
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	event, err := s.eventService.CreateEvent(c.UserContext(), currentActor(c), eventInput(c))
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, event.Version)
	return c.Status(fiber.StatusCreated).JSON(event)
}

// UpdateEvent handles PUT /api/events/:id
// @Summary Update event
// @Description Owner or Admin. Sends If-Match to make the write conditional.
// @Tags events
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param If-Match header string false "Expected version"
// @Success 200 {object} models.Event
// @Failure 403 {object} models.ErrorResponse
// @Failure 412 {object} models.ErrorResponse
// @Router /events/{id} [put]
func (s *Server) UpdateEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ifMatch, err := parseIfMatch(c)
	if err != nil {
		return nil
	}

	event, err := s.eventService.UpdateEvent(c.UserContext(), currentActor(c), id, eventInput(c), ifMatch)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, event.Version)
	return c.JSON(event)
}

// DeleteEvent handles DELETE /api/events/:id
// @Summary Delete event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [delete]
func (s *Server) DeleteEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.eventService.DeleteEvent(c.UserContext(), currentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Event deleted successfully",
	})
}
