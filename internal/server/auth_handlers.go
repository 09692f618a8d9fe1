package server

import (
	"hongdating/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Anonymous handles POST /api/auth/anonymous
// @Summary Create an anonymous identity
// @Description Creates a user bound to a fresh device id. The device secret is returned only once.
// @Tags auth
// @Produce json
// @Success 201 {object} service.AuthResult
// @Failure 429 {object} models.ErrorResponse
// @Router /auth/anonymous [post]
func (s *Server) Anonymous(c *fiber.Ctx) error {
	res, err := s.authService.Anonymous(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Resume handles POST /api/auth/resume
// @Summary Sign a device back in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{device_id=string,device_secret=string} true "Device credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/resume [post]
func (s *Server) Resume(c *fiber.Ctx) error {
	var req struct {
		DeviceID     string `json:"device_id"`
		DeviceSecret string `json:"device_secret"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Resume(c.UserContext(), req.DeviceID, req.DeviceSecret)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current token
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Revoke(c.UserContext(), currentClaims(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// IssueWSTicket handles POST /api/auth/ws-ticket
// @Summary Issue a single-use websocket ticket
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Router /auth/ws-ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	ticket, ttl, err := s.authService.IssueTicket(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(ttl.Seconds()),
	})
}
