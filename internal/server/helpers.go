package server

import (
	"errors"
	"strconv"

	"canopy/internal/middleware"
	"canopy/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// queryInt reads an integer query parameter. A missing parameter yields def;
// a non-numeric one writes a 400 and returns errResponseWritten.
func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(name+" must be an integer"))
		return 0, errResponseWritten
	}
	return n, nil
}

// pageParams reads page and pageSize, defaulting to the first page of the
// configured default size. Range checks happen in the service.
func (s *Server) pageParams(c *fiber.Ctx) (page, pageSize int, err error) {
	if page, err = queryInt(c, "page", 1); err != nil {
		return 0, 0, err
	}
	if pageSize, err = queryInt(c, "pageSize", s.config.TimelineDefaultPageSize); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// respondError writes err with the status its code maps to. Internal errors
// are logged with their cause, which never reaches the client.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, err)
}
