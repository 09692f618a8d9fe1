package server

import (
	"hongdating/internal/models"
	"hongdating/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendRequest handles POST /api/requests
// @Summary Send a message request
// @Tags requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{recipient_id=int,message=string} true "Request"
// @Success 201 {object} models.RequestView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse "code DAILY_LIMIT when the daily quota is used up"
// @Router /requests [post]
func (s *Server) SendRequest(c *fiber.Ctx) error {
	var req struct {
		RecipientID uint   `json:"recipient_id"`
		Message     string `json:"message"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	view, err := s.requestService.Send(c.UserContext(), service.SendRequestInput{
		SenderID:    currentUserID(c),
		RecipientID: req.RecipientID,
		Message:     req.Message,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// GetReceivedRequests handles GET /api/requests/received?status=pending
func (s *Server) GetReceivedRequests(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	reqs, err := s.requestService.ListReceived(c.UserContext(), currentUserID(c),
		c.Query("status", models.RequestStatusPending), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reqs)
}

// GetSentRequests handles GET /api/requests/sent
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	reqs, err := s.requestService.ListSent(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reqs)
}

// GetRequestQuota handles GET /api/requests/quota
func (s *Server) GetRequestQuota(c *fiber.Ctx) error {
	quota, err := s.requestService.Quota(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(quota)
}

// AcceptRequest handles POST /api/requests/:id/accept
// @Summary Accept a pending request and open a room
// @Tags requests
// @Security BearerAuth
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} service.AcceptResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id}/accept [post]
func (s *Server) AcceptRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	res, err := s.requestService.Accept(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// RejectRequest handles POST /api/requests/:id/reject
func (s *Server) RejectRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	view, err := s.requestService.Reject(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(view)
}
