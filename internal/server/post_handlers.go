package server

import (
	"hongdating/internal/models"
	"hongdating/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts?limit&offset
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.postService.ListPosts(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{content=string,image_keys=[]string} true "Post"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Content   string   `json:"content"`
		ImageKeys []string `json:"image_keys"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:    currentUserID(c),
		Content:   req.Content,
		ImageKeys: req.ImageKeys,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id. Omitting image_keys keeps the
// current images.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content   string    `json:"content"`
		ImageKeys *[]string `json:"image_keys"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:    currentUserID(c),
		PostID:    id,
		Content:   req.Content,
		ImageKeys: req.ImageKeys,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadPostImage handles POST /api/posts/images (multipart field "image")
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	data, contentType, err := readUpload(c, "image", s.imageLimit())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	obj, err := s.postService.UploadImage(c.UserContext(), currentUserID(c), contentType, data)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// PostImageUploadURL handles POST /api/posts/images/upload-url
func (s *Server) PostImageUploadURL(c *fiber.Ctx) error {
	var req struct {
		ContentType string `json:"content_type"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	upload, err := s.postService.ImageUploadURL(c.UserContext(), currentUserID(c), req.ContentType)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(upload)
}

// ReactToPost handles POST /api/posts/:id/reactions
func (s *Server) ReactToPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Kind string `json:"kind"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.postService.React(c.UserContext(), currentUserID(c), id, req.Kind)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

type commentRequest struct {
	Body string `json:"body"`
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.postService.AddComment(c.UserContext(), currentUserID(c), id, req.Body)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/posts/:id/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.postService.UpdateComment(c.UserContext(), currentUserID(c), postID, commentID, req.Body)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.postService.DeleteComment(c.UserContext(), currentUserID(c), postID, commentID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
