package repository

import (
	"context"
	"time"

	"hongdating/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushRepository stores device tokens for push delivery.
type PushRepository interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	Delete(ctx context.Context, userID uint, token string) error
	Tokens(ctx context.Context, userID uint) ([]string, error)
	DeleteTokens(ctx context.Context, tokens []string) error
}

type pushRepository struct {
	db *gorm.DB
}

// NewPushRepository returns a new PushRepository implementation.
func NewPushRepository(db *gorm.DB) PushRepository {
	return &pushRepository{db: db}
}

// Upsert registers the token, moving it to sub.UserID if another account
// held it on the same device.
func (r *pushRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	sub.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *pushRepository) Delete(ctx context.Context, userID uint, token string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&models.PushSubscription{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *pushRepository) Tokens(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	if err := r.db.WithContext(ctx).Model(&models.PushSubscription{}).Where("user_id = ?", userID).Order("id ASC").Pluck("token", &tokens).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}

// DeleteTokens drops tokens the gateway reported as no longer valid.
func (r *pushRepository) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&models.PushSubscription{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
