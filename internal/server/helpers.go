package server

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"dreamio/internal/models"
	"dreamio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// currentActor returns the caller set by AuthRequired.
func currentActor(c *fiber.Ctx) service.Actor {
	id, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(models.Role)
	return service.Actor{ID: id, Role: role}
}

// parseIfMatch reads the If-Match header as a version number. An absent or
// wildcard header yields 0, meaning unconditional.
func parseIfMatch(c *fiber.Ctx) (int, error) {
	raw := strings.TrimSpace(c.Get(fiber.HeaderIfMatch))
	if raw == "" || raw == "*" {
		return 0, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("If-Match must carry a resource version"))
		return 0, errResponseWritten
	}
	return v, nil
}

// setETag exposes the resource version for conditional updates.
func setETag(c *fiber.Ctx, version int) {
	c.Set(fiber.HeaderETag, `W/"`+strconv.Itoa(version)+`"`)
}

// respondError writes err using the status derived from its code.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithAppError(c, err)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
