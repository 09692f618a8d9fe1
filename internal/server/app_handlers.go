package server

import (
	"hongdating/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAppStatus handles GET /api/app/status. It stays reachable during
// maintenance so clients can show the message.
// @Summary Maintenance state and current notice
// @Tags app
// @Produce json
// @Success 200 {object} service.AppStatus
// @Router /app/status [get]
func (s *Server) GetAppStatus(c *fiber.Ctx) error {
	return c.JSON(s.flagService.Status())
}

// SubscribePush handles POST /api/push/subscriptions
func (s *Server) SubscribePush(c *fiber.Ctx) error {
	var req struct {
		Platform string `json:"platform"`
		Token    string `json:"token"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	sub, err := s.pushService.Subscribe(c.UserContext(), currentUserID(c), req.Platform, req.Token)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// UnsubscribePush handles DELETE /api/push/subscriptions
func (s *Server) UnsubscribePush(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.pushService.Unsubscribe(c.UserContext(), currentUserID(c), req.Token); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
