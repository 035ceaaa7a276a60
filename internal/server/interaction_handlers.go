package server

import (
	"canopy/internal/middleware"
	"canopy/internal/models"

	"github.com/gofiber/fiber/v2"
)

type toggleInteractionRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   uint   `json:"entity_id"`
	Type       string `json:"type"`
}

// ToggleInteraction handles POST and DELETE /api/interactions. Both verbs
// toggle: the interaction is added when absent and removed when present.
// @Summary Toggle an interaction
// @Description Adds or removes the caller's like, share, bookmark, report or hide on a visible entity
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{entity_type=string,entity_id=int,type=string} true "Interaction target"
// @Success 200 {object} models.ToggleResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /interactions [post]
// @Router /interactions [delete]
func (s *Server) ToggleInteraction(c *fiber.Ctx) error {
	var req toggleInteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.EntityID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("entity_id is required"))
	}

	entityType, err := models.ParseEntityType(req.EntityType)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.interactions.Toggle(c.UserContext(), middleware.ViewerFrom(c),
		models.EntityRef{Type: entityType, ID: req.EntityID}, models.InteractionType(req.Type))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
