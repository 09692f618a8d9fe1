package server

import (
	"log/slog"

	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetMe(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /api/users/me/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req service.ProfileInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// DeleteMe handles DELETE /api/users/me. The token used for the call is
// revoked once the account is gone.
func (s *Server) DeleteMe(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := s.userService.DeleteAccount(ctx, currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := s.authService.Revoke(ctx, currentClaims(c)); err != nil {
		middleware.Logger.WarnContext(ctx, "revoke after account deletion failed", slog.String("error", err.Error()))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFeed handles GET /api/users?limit&offset&gender&interest
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	profiles, err := s.userService.Feed(c.UserContext(), service.FeedInput{
		ViewerID: currentUserID(c),
		Gender:   c.Query("gender"),
		Interest: c.Query("interest"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profiles)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetProfile(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// ReactToUser handles POST /api/users/:id/reactions
func (s *Server) ReactToUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	summaries, err := s.userService.React(c.UserContext(), currentUserID(c), id, req.Emoji)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"reactions": summaries})
}

// BlockUser handles POST /api/users/:id/block
func (s *Server) BlockUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Block(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnblockUser handles DELETE /api/users/:id/block
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Unblock(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadPhoto handles POST /api/users/me/photo (multipart field "photo")
func (s *Server) UploadPhoto(c *fiber.Ctx) error {
	data, contentType, err := readUpload(c, "photo", s.imageLimit())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	user, err := s.userService.UploadPhoto(c.UserContext(), currentUserID(c), contentType, data)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// PhotoUploadURL handles POST /api/users/me/photo/upload-url
func (s *Server) PhotoUploadURL(c *fiber.Ctx) error {
	var req struct {
		ContentType string `json:"content_type"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	upload, err := s.userService.PhotoUploadURL(c.UserContext(), currentUserID(c), req.ContentType)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(upload)
}

// SetPhoto handles PUT /api/users/me/photo after a presigned upload
func (s *Server) SetPhoto(c *fiber.Ctx) error {
	var req struct {
		Key string `json:"key"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.SetPhoto(c.UserContext(), currentUserID(c), req.Key)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// GetMyFlags handles GET /api/users/me/flags
func (s *Server) GetMyFlags(c *fiber.Ctx) error {
	flags, err := s.flagService.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(flags)
}

// SetMyFlags handles PUT /api/users/me/flags
func (s *Server) SetMyFlags(c *fiber.Ctx) error {
	var req map[string]string
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	flags, err := s.flagService.Set(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(flags)
}

func (s *Server) imageLimit() int64 {
	mb := s.config.ImageMaxUploadSizeMB
	if mb < 1 {
		mb = service.DefaultImageMaxUploadSizeMB
	}
	return int64(mb) * 1024 * 1024
}
