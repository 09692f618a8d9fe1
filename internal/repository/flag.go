package repository

import (
	"context"
	"time"

	"hongdating/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlagRepository stores the per-user UI flags.
type FlagRepository interface {
	List(ctx context.Context, userID uint) ([]models.UserFlag, error)
	Upsert(ctx context.Context, userID uint, values map[string]string) error
}

type flagRepository struct {
	db *gorm.DB
}

// NewFlagRepository returns a new FlagRepository implementation.
func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &flagRepository{db: db}
}

func (r *flagRepository) List(ctx context.Context, userID uint) ([]models.UserFlag, error) {
	var flags []models.UserFlag
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("key ASC").Find(&flags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return flags, nil
}

func (r *flagRepository) Upsert(ctx context.Context, userID uint, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.UserFlag, 0, len(values))
	for k, v := range values {
		rows = append(rows, models.UserFlag{UserID: userID, Key: k, Value: v, UpdatedAt: now})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
