package server

import (
	"dreamio/internal/models"
	"dreamio/internal/service"

	"github.com/gofiber/fiber/v2"
)

func liveStreamInput(c *fiber.Ctx) (service.CreateLiveStreamInput, error) {
	in := service.CreateLiveStreamInput{
		Title:        c.FormValue("title"),
		Description:  c.FormValue("description"),
		Platform:     c.FormValue("platform"),
		StreamKey:    c.FormValue("streamKey"),
		ScheduledFor: c.FormValue("scheduledFor"),
		Tags:         c.FormValue("tags"),
		Category:     c.FormValue("category"),
		Video:        optionalFile(c, "videoFile"),
	}

	flags := []struct {
		field string
		dest  **bool
	}{
		{"isPublic", &in.IsPublic},
		{"chatEnabled", &in.ChatEnabled},
		{"recordingEnabled", &in.RecordingEnabled},
	}
	for _, f := range flags {
		v, err := service.ParseFormBool(c.FormValue(f.field))
		if err != nil {
			return in, models.NewValidationError(f.field + " must be true or false")
		}
		*f.dest = v
	}
	return in, nil
}

// GetLiveStreams handles GET /api/live-streams
// @Summary List public live streams
// @Tags live-streams
// @Produce json
// @Success 200 {array} models.LiveStream
// @Router /live-streams [get]
func (s *Server) GetLiveStreams(c *fiber.Ctx) error {
	streams, err := s.streamService.ListPublic(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(streams)
}

// GetCurrentLiveStreams handles GET /api/live-streams/live/current
// @Summary List streams that are live now
// @Tags live-streams
// @Produce json
// @Success 200 {array} models.LiveStream
// @Router /live-streams/live/current [get]
func (s *Server) GetCurrentLiveStreams(c *fiber.Ctx) error {
	streams, err := s.streamService.ListCurrent(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(streams)
}

// GetUserLiveStreams handles GET /api/live-streams/user/:userId
// @Summary List a user's streams
// @Tags live-streams
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.LiveStream
// @Router /live-streams/user/{userId} [get]
func (s *Server) GetUserLiveStreams(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	streams, err := s.streamService.ListByUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(streams)
}

// GetLiveStream handles GET /api/live-streams/:id
// @Summary Get live stream
// @Tags live-streams
// @Produce json
// @Param id path int true "Live stream ID"
// @Success 200 {object} models.LiveStream
// @Failure 404 {object} models.ErrorResponse
// @Router /live-streams/{id} [get]
func (s *Server) GetLiveStream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stream, err := s.streamService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, stream.Version)
	return c.JSON(stream)
}

// CreateLiveStream handles POST /api/live-streams
// @Summary Create live stream
// @Description Internal streams need videoFile and no streamKey; external platforms the reverse.
// @Tags live-streams
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param platform formData string false "dreamio, youtube, facebook, twitch or custom"
// @Param streamKey formData string false "Stream key for external platforms"
// @Param videoFile formData file false "Video for dreamio streams, 500 MB max"
// @Param tags formData string false "Comma separated"
// @Success 201 {object} models.LiveStream
// @Failure 400 {object} models.ErrorResponse
// @Router /live-streams [post]
func (s *Server) CreateLiveStream(c *fiber.Ctx) error {
	in, err := liveStreamInput(c)
	if err != nil {
		return respondError(c, err)
	}
	stream, err := s.streamService.Create(c.UserContext(), currentActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, stream.Version)
	return c.Status(fiber.StatusCreated).JSON(stream)
}

// StartLiveStream handles PATCH /api/live-streams/:id/start
// @Summary Go live
// @Tags live-streams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Live stream ID"
// @Success 200 {object} models.LiveStream
// @Failure 403 {object} models.ErrorResponse
// @Router /live-streams/{id}/start [patch]
func (s *Server) StartLiveStream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stream, err := s.streamService.Start(c.UserContext(), currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, stream.Version)
	return c.JSON(stream)
}

// StopLiveStream handles PATCH /api/live-streams/:id/stop
// @Summary End a stream
// @Tags live-streams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Live stream ID"
// @Success 200 {object} models.LiveStream
// @Failure 403 {object} models.ErrorResponse
// @Router /live-streams/{id}/stop [patch]
func (s *Server) StopLiveStream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stream, err := s.streamService.Stop(c.UserContext(), currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, stream.Version)
	return c.JSON(stream)
}

// UpdateViewerCount handles PATCH /api/live-streams/:id/viewers
// @Summary Set viewer count
// @Tags live-streams
// @Accept json
// @Produce json
// @Param id path int true "Live stream ID"
// @Param request body object{viewerCount=int} true "Count"
// @Success 200 {object} models.LiveStream
// @Router /live-streams/{id}/viewers [patch]
func (s *Server) UpdateViewerCount(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		ViewerCount *int `json:"viewerCount"`
	}
	if err := c.BodyParser(&req); err != nil || req.ViewerCount == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("viewerCount is required"))
	}
	stream, err := s.streamService.SetViewerCount(c.UserContext(), id, *req.ViewerCount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stream)
}

// UpdateLikeCount handles PATCH /api/live-streams/:id/like
// @Summary Set like count
// @Tags live-streams
// @Accept json
// @Produce json
// @Param id path int true "Live stream ID"
// @Param request body object{likeCount=int} true "Count"
// @Success 200 {object} models.LiveStream
// @Router /live-streams/{id}/like [patch]
func (s *Server) UpdateLikeCount(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		LikeCount *int `json:"likeCount"`
	}
	if err := c.BodyParser(&req); err != nil || req.LikeCount == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("likeCount is required"))
	}
	stream, err := s.streamService.SetLikeCount(c.UserContext(), id, *req.LikeCount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stream)
}

// UpdateLiveStream handles PUT /api/live-streams/:id
// @Summary Update live stream metadata
// @Tags live-streams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Live stream ID"
// @Param If-Match header string false "Expected version"
// @Param request body service.UpdateLiveStreamInput true "Fields to change"
// @Success 200 {object} models.LiveStream
// @Failure 400 {object} models.ErrorResponse
// @Failure 412 {object} models.ErrorResponse
// @Router /live-streams/{id} [put]
func (s *Server) UpdateLiveStream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ifMatch, err := parseIfMatch(c)
	if err != nil {
		return nil
	}
	var req service.UpdateLiveStreamInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	stream, err := s.streamService.Update(c.UserContext(), currentActor(c), id, req, ifMatch)
	if err != nil {
		return respondError(c, err)
	}
	setETag(c, stream.Version)
	return c.JSON(stream)
}

// DeleteLiveStream handles DELETE /api/live-streams/:id
// @Summary Delete live stream
// @Tags live-streams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Live stream ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /live-streams/{id} [delete]
func (s *Server) DeleteLiveStream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.streamService.Delete(c.UserContext(), currentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Live stream deleted successfully"})
}
