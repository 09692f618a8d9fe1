package server

import (
	"hongdating/internal/models"
	"hongdating/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReport handles POST /api/reports
// @Summary Report a user, post, comment or message
// @Tags moderation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{target_type=string,target_id=int,reason=string,detail=string,attachment_key=string} true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /reports [post]
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var req struct {
		TargetType    string `json:"target_type"`
		TargetID      uint   `json:"target_id"`
		Reason        string `json:"reason"`
		Detail        string `json:"detail"`
		AttachmentKey string `json:"attachment_key"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	report, err := s.moderationService.Report(c.UserContext(), service.ReportInput{
		ReporterID:    currentUserID(c),
		TargetType:    req.TargetType,
		TargetID:      req.TargetID,
		Reason:        req.Reason,
		Detail:        req.Detail,
		AttachmentKey: req.AttachmentKey,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// UploadReportAttachment handles POST /api/reports/attachments (multipart field "file")
func (s *Server) UploadReportAttachment(c *fiber.Ctx) error {
	data, _, err := readUpload(c, "file", service.AttachmentMaxSizeMB*1024*1024)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	obj, err := s.moderationService.UploadAttachment(c.UserContext(), currentUserID(c), data)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// CreateComplaint handles POST /api/complaints
func (s *Server) CreateComplaint(c *fiber.Ctx) error {
	var req struct {
		Category      string `json:"category"`
		Body          string `json:"body"`
		AttachmentKey string `json:"attachment_key"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	complaint, err := s.moderationService.Complain(c.UserContext(), service.ComplaintInput{
		AuthorID:      currentUserID(c),
		Category:      req.Category,
		Body:          req.Body,
		AttachmentKey: req.AttachmentKey,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(complaint)
}

// GetMyComplaints handles GET /api/complaints/me
func (s *Server) GetMyComplaints(c *fiber.Ctx) error {
	complaints, err := s.moderationService.MyComplaints(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(complaints)
}

// AdminListReports handles GET /api/admin/reports?status=open
func (s *Server) AdminListReports(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	reports, err := s.moderationService.ListReports(c.UserContext(), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reports)
}

// AdminResolveReport handles POST /api/admin/reports/:id/resolve
// @Summary Resolve or dismiss a report
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body object{status=string,note=string} true "Resolution"
// @Success 200 {object} models.Report
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/reports/{id}/resolve [post]
func (s *Server) AdminResolveReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	report, err := s.moderationService.ResolveReport(c.UserContext(), service.ResolveReportInput{
		AdminID:  currentUserID(c),
		ReportID: id,
		Status:   req.Status,
		Note:     req.Note,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(report)
}

// AdminListComplaints handles GET /api/admin/complaints?status=
func (s *Server) AdminListComplaints(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	complaints, err := s.moderationService.ListComplaints(c.UserContext(), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(complaints)
}

// AdminAnswerComplaint handles POST /api/admin/complaints/:id/answer
func (s *Server) AdminAnswerComplaint(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	complaint, err := s.moderationService.AnswerComplaint(c.UserContext(), currentUserID(c), id, req.Answer)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(complaint)
}
