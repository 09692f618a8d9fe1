package service

import (
	"context"
	"strings"

	"hongdating/internal/models"
	"hongdating/internal/repository"
	"hongdating/internal/storage"
	"hongdating/internal/validation"
)

type ModerationService struct {
	modRepo  repository.ModerationRepository
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	chatRepo repository.ChatRepository
	media    *MediaService
}

type ReportInput struct {
	ReporterID    uint
	TargetType    string
	TargetID      uint
	Reason        string
	Detail        string
	AttachmentKey string
}

type ComplaintInput struct {
	AuthorID      uint
	Category      string
	Body          string
	AttachmentKey string
}

type ResolveReportInput struct {
	AdminID  uint
	ReportID uint
	Status   string
	Note     string
}

func NewModerationService(
	modRepo repository.ModerationRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	chatRepo repository.ChatRepository,
	media *MediaService,
) *ModerationService {
	return &ModerationService{
		modRepo:  modRepo,
		userRepo: userRepo,
		postRepo: postRepo,
		chatRepo: chatRepo,
		media:    media,
	}
}

// checkTarget confirms the target exists. A message may only be reported by
// someone who could read it.
func (s *ModerationService) checkTarget(ctx context.Context, reporterID uint, targetType string, targetID uint) error {
	if targetID == 0 {
		return models.NewValidationError("target_id is required")
	}
	switch targetType {
	case models.ReportTargetUser:
		if targetID == reporterID {
			return models.NewValidationError("You cannot report yourself")
		}
		_, err := s.userRepo.GetByID(ctx, targetID)
		return err
	case models.ReportTargetPost:
		_, err := s.postRepo.GetByID(ctx, targetID)
		return err
	case models.ReportTargetMessage:
		msg, err := s.chatRepo.GetMessage(ctx, targetID)
		if err != nil {
			return err
		}
		if msg.SenderID != reporterID && msg.RecipientID != reporterID {
			return models.NewNotFoundError("Message", targetID)
		}
		return nil
	default:
		return models.NewValidationError("target_type must be user, post or message")
	}
}

func (s *ModerationService) attachment(ownerID uint, key string) (string, string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", nil
	}
	if !storage.OwnedBy(key, storage.PrefixReports, ownerID) {
		return "", "", models.NewValidationError("Invalid attachment key")
	}
	return key, s.media.URL(key), nil
}

func (s *ModerationService) Report(ctx context.Context, in ReportInput) (*models.Report, error) {
	if !models.ReportReasons[in.Reason] {
		return nil, models.NewValidationError("reason must be spam, harassment, inappropriate, fake_profile or other")
	}
	detail, err := validation.Text("detail", in.Detail, 0, validation.ReportDetailMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	if err := s.checkTarget(ctx, in.ReporterID, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}
	key, url, err := s.attachment(in.ReporterID, in.AttachmentKey)
	if err != nil {
		return nil, err
	}

	open, err := s.modRepo.FindOpenReport(ctx, in.ReporterID, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, models.NewConflictError("You already reported this")
	}

	report := &models.Report{
		ReporterID:    in.ReporterID,
		TargetType:    in.TargetType,
		TargetID:      in.TargetID,
		Reason:        in.Reason,
		Detail:        detail,
		AttachmentKey: key,
		AttachmentURL: url,
		Status:        models.ReportStatusOpen,
	}
	if err := s.modRepo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// UploadAttachment stores a file for a later report or complaint.
func (s *ModerationService) UploadAttachment(ctx context.Context, userID uint, content []byte) (storage.Object, error) {
	return s.media.StoreAttachment(ctx, userID, content)
}

func (s *ModerationService) ListReports(ctx context.Context, status string, limit, offset int) ([]models.Report, error) {
	switch status {
	case "", models.ReportStatusOpen, models.ReportStatusResolved, models.ReportStatusDismissed:
	default:
		return nil, models.NewValidationError("status must be open, resolved or dismissed")
	}
	return s.modRepo.ListReports(ctx, status, limit, offset)
}

func (s *ModerationService) ResolveReport(ctx context.Context, in ResolveReportInput) (*models.Report, error) {
	if in.Status != models.ReportStatusResolved && in.Status != models.ReportStatusDismissed {
		return nil, models.NewValidationError("status must be resolved or dismissed")
	}
	note, err := validation.Text("note", in.Note, 0, validation.ResolutionNoteMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	report, err := s.modRepo.GetReport(ctx, in.ReportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusOpen {
		return nil, models.NewConflictError("Report has already been " + report.Status)
	}

	now := timeNow()
	adminID := in.AdminID
	report.Status = in.Status
	report.ResolutionNote = note
	report.ResolvedBy = &adminID
	report.ResolvedAt = &now
	if err := s.modRepo.UpdateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ModerationService) Complain(ctx context.Context, in ComplaintInput) (*models.Complaint, error) {
	if !models.ComplaintCategories[in.Category] {
		return nil, models.NewValidationError("category must be bug, account, safety, feature or other")
	}
	body, err := validation.Text("body", in.Body, 1, validation.ComplaintBodyMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	key, url, err := s.attachment(in.AuthorID, in.AttachmentKey)
	if err != nil {
		return nil, err
	}
	complaint := &models.Complaint{
		AuthorID:      in.AuthorID,
		Category:      in.Category,
		Body:          body,
		AttachmentKey: key,
		AttachmentURL: url,
		Status:        models.ComplaintStatusOpen,
	}
	if err := s.modRepo.CreateComplaint(ctx, complaint); err != nil {
		return nil, err
	}
	return complaint, nil
}

func (s *ModerationService) MyComplaints(ctx context.Context, userID uint) ([]models.Complaint, error) {
	return s.modRepo.ListComplaintsByAuthor(ctx, userID)
}

func (s *ModerationService) ListComplaints(ctx context.Context, status string, limit, offset int) ([]models.Complaint, error) {
	switch status {
	case "", models.ComplaintStatusOpen, models.ComplaintStatusAnswered, models.ComplaintStatusClosed:
	default:
		return nil, models.NewValidationError("status must be open, answered or closed")
	}
	return s.modRepo.ListComplaints(ctx, status, limit, offset)
}

func (s *ModerationService) AnswerComplaint(ctx context.Context, adminID, complaintID uint, answer string) (*models.Complaint, error) {
	answer, err := validation.Text("answer", answer, 1, validation.ComplaintAnswerMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	complaint, err := s.modRepo.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status == models.ComplaintStatusClosed {
		return nil, models.NewConflictError("Complaint is closed")
	}
	now := timeNow()
	complaint.Status = models.ComplaintStatusAnswered
	complaint.Answer = answer
	complaint.AnsweredBy = &adminID
	complaint.AnsweredAt = &now
	if err := s.modRepo.UpdateComplaint(ctx, complaint); err != nil {
		return nil, err
	}
	return complaint, nil
}
