package server

import (
	"canopy/internal/middleware"
	"canopy/internal/models"
	"canopy/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetTimeline handles GET /api/timeline
// @Summary Timeline page
// @Description Trending projects and branches, or recent content and activity from followed users
// @Tags timeline
// @Produce json
// @Param kind query string false "trending or forYou" default(trending)
// @Param page query int false "1-based page number" default(1)
// @Param pageSize query int false "Items per page"
// @Success 200 {object} models.TimelinePage
// @Failure 400 {object} models.ErrorResponse
// @Router /timeline [get]
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	page, pageSize, err := s.pageParams(c)
	if err != nil {
		return nil
	}

	result, err := s.timeline.BuildTimeline(c.UserContext(), service.TimelineRequest{
		Kind:     models.TimelineKind(c.Query("kind", string(models.TimelineTrending))),
		Viewer:   middleware.ViewerFrom(c),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
