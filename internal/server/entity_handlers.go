package server

import (
	"canopy/internal/middleware"
	"canopy/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetEntity returns the handler for GET /api/{projects,branches,posts}/:id.
// Entities the caller may not see answer 404, same as missing ones.
// @Summary Get a project, branch or post
// @Description Returns the entity with engagement counters, trending flags and the caller's own interactions
// @Tags entities
// @Produce json
// @Param id path int true "Entity ID"
// @Success 200 {object} object
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [get]
// @Router /branches/{id} [get]
// @Router /posts/{id} [get]
func (s *Server) GetEntity(t models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return nil
		}

		entity, err := s.entities.Get(c.UserContext(), middleware.ViewerFrom(c),
			models.EntityRef{Type: t, ID: id})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entity)
	}
}

// ListMine handles GET /api/me/:type
// @Summary List own content
// @Description The caller's projects, branches or posts, most recently updated first
// @Tags entities
// @Produce json
// @Security BearerAuth
// @Param type path string true "projects, branches or posts"
// @Param page query int false "1-based page number" default(1)
// @Param pageSize query int false "Items per page"
// @Success 200 {object} service.EntityPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /me/{type} [get]
func (s *Server) ListMine(c *fiber.Ctx) error {
	t, err := models.ParseEntityType(c.Params("type"))
	if err != nil {
		return respondError(c, err)
	}
	page, pageSize, err := s.pageParams(c)
	if err != nil {
		return nil
	}

	result, err := s.entities.ListMine(c.UserContext(), middleware.ViewerFrom(c), t, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// DeleteEntity returns the handler for DELETE /api/{projects,branches,posts}/:id.
// Only the author may delete; anyone else gets 404.
// @Summary Delete a project, branch or post
// @Description Removes the entity, everything beneath it and all their interactions
// @Tags entities
// @Security BearerAuth
// @Param id path int true "Entity ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [delete]
// @Router /branches/{id} [delete]
// @Router /posts/{id} [delete]
func (s *Server) DeleteEntity(t models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return nil
		}
		if err := s.entities.Delete(c.UserContext(), middleware.ViewerFrom(c), models.EntityRef{Type: t, ID: id}); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
