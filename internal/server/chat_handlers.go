package server

import (
	"hongdating/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetInbox handles GET /api/inbox
func (s *Server) GetInbox(c *fiber.Ctx) error {
	snap, err := s.inboxService.LoadInbox(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(snap)
}

// GetRooms handles GET /api/rooms
func (s *Server) GetRooms(c *fiber.Ctx) error {
	rooms, err := s.chatService.ListRooms(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(rooms)
}

// GetRoom handles GET /api/rooms/:id
func (s *Server) GetRoom(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	room, err := s.chatService.GetRoom(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(room)
}

// GetMessages handles GET /api/rooms/:id/messages?limit&before
func (s *Server) GetMessages(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	before := c.QueryInt("before", 0)
	if before < 0 {
		before = 0
	}

	msgs, err := s.chatService.ListMessages(c.UserContext(), id, currentUserID(c), page.Limit, uint(before))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/rooms/:id/messages
// @Summary Send a chat message
// @Tags rooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /rooms/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), id, currentUserID(c), req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkRead handles POST /api/rooms/:id/read
func (s *Server) MarkRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	flipped, err := s.chatService.MarkRead(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"read": flipped})
}

// LeaveRoom handles DELETE /api/rooms/:id. The room closes for both users.
func (s *Server) LeaveRoom(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.chatService.Leave(c.UserContext(), id, currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetIcebreakerQuestions handles GET /api/icebreakers/questions
func (s *Server) GetIcebreakerQuestions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"questions": s.icebreakerService.Questions()})
}

// GetIcebreaker handles GET /api/rooms/:id/icebreaker
func (s *Server) GetIcebreaker(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	st, err := s.icebreakerService.Get(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(st)
}

// SubmitIcebreaker handles PUT /api/rooms/:id/icebreaker
func (s *Server) SubmitIcebreaker(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Answers []string `json:"answers"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	st, err := s.icebreakerService.Submit(c.UserContext(), id, currentUserID(c), req.Answers)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(st)
}
