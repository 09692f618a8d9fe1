package repository

import (
	"context"
	"errors"

	"hongdating/internal/models"

	"gorm.io/gorm"
)

// ModerationRepository stores reports and complaints.
type ModerationRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	FindOpenReport(ctx context.Context, reporterID uint, targetType string, targetID uint) (*models.Report, error)
	GetReport(ctx context.Context, id uint) (*models.Report, error)
	ListReports(ctx context.Context, status string, limit, offset int) ([]models.Report, error)
	UpdateReport(ctx context.Context, report *models.Report) error

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	ListComplaintsByAuthor(ctx context.Context, authorID uint) ([]models.Complaint, error)
	ListComplaints(ctx context.Context, status string, limit, offset int) ([]models.Complaint, error)
	UpdateComplaint(ctx context.Context, complaint *models.Complaint) error
}

type moderationRepository struct {
	db *gorm.DB
}

// NewModerationRepository returns a new ModerationRepository implementation.
func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) CreateReport(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *moderationRepository) FindOpenReport(ctx context.Context, reporterID uint, targetType string, targetID uint) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Where("reporter_id = ? AND target_type = ? AND target_id = ? AND status = ?",
			reporterID, targetType, targetID, models.ReportStatusOpen).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &report, nil
}

func (r *moderationRepository) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Report", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &report, nil
}

func (r *moderationRepository) ListReports(ctx context.Context, status string, limit, offset int) ([]models.Report, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reports []models.Report
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}

func (r *moderationRepository) UpdateReport(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Save(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *moderationRepository) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	if err := r.db.WithContext(ctx).Create(complaint).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *moderationRepository) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).First(&complaint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Complaint", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &complaint, nil
}

func (r *moderationRepository) ListComplaintsByAuthor(ctx context.Context, authorID uint) ([]models.Complaint, error) {
	var complaints []models.Complaint
	if err := r.db.WithContext(ctx).Where("author_id = ?", authorID).Order("created_at DESC").Order("id DESC").Find(&complaints).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return complaints, nil
}

func (r *moderationRepository) ListComplaints(ctx context.Context, status string, limit, offset int) ([]models.Complaint, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var complaints []models.Complaint
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&complaints).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return complaints, nil
}

func (r *moderationRepository) UpdateComplaint(ctx context.Context, complaint *models.Complaint) error {
	if err := r.db.WithContext(ctx).Save(complaint).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
