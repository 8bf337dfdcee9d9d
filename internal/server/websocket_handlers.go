package server

import (
	"context"
	"errors"
	"log/slog"

	"dreamio/internal/middleware"
	"dreamio/internal/models"
	"dreamio/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade checks the stream exists before the handshake and records
// the optional viewer identity.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.streamService.Get(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	c.Locals("streamID", id)
	if userID, ok := s.optionalUserID(c); ok {
		c.Locals("userID", userID)
	}
	return c.Next()
}

// WebSocketViewerHandler handles GET /api/ws/live-streams/:id. Every open
// socket counts as one viewer of the stream.
func (s *Server) WebSocketViewerHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		streamID, _ := conn.Locals("streamID").(uint)
		userID, _ := conn.Locals("userID").(uint)

		client, err := s.viewerHub.Join(context.Background(), streamID, userID, conn)
		if err != nil {
			middleware.Logger.Warn("viewer join rejected",
				slog.Uint64("stream_id", uint64(streamID)),
				slog.String("error", err.Error()))
			msg := err.Error()
			var appErr *models.AppError
			if errors.As(err, &appErr) {
				msg = appErr.Message
			}
			_ = conn.WriteJSON(fiber.Map{"type": "error", "error": msg})
			_ = conn.Close()
			return
		}

		// Viewers do not send application messages; reads only drive keepalive.
		client.IncomingHandler = func(*notifications.Client, []byte) {}

		go client.WritePump()
		client.ReadPump()
	})
}
