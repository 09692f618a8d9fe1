package server

import (
	"log/slog"

	"hongdating/internal/middleware"
	"hongdating/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AdminDailyStats handles GET /api/admin/stats/daily?days=7
// @Summary Daily active users and request counts
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param days query int false "Days to include (1-90)"
// @Success 200 {array} models.DailyStat
// @Router /admin/stats/daily [get]
func (s *Server) AdminDailyStats(c *fiber.Ctx) error {
	stats, err := s.activityService.DailyStats(c.UserContext(), c.QueryInt("days", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(stats)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags":     s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}

// SetFeatureFlag handles PUT /api/admin/feature-flags
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	var req struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx := c.UserContext()
	if err := s.featureFlags.Set(ctx, req.Name, req.Value); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	middleware.Logger.InfoContext(ctx, "feature flag updated",
		slog.Uint64("admin_id", uint64(currentUserID(c))),
		slog.String("flag", req.Name),
		slog.String("value", req.Value),
	)
	return c.JSON(fiber.Map{"flags": s.featureFlags.Raw()})
}
