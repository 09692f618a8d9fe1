package repository

import (
	"context"

	"hongdating/internal/models"

	"gorm.io/gorm"
)

// IcebreakerRepository stores per-room icebreaker answers.
type IcebreakerRepository interface {
	SaveAnswers(ctx context.Context, roomID, userID uint, answers []string) error
	ListAnswers(ctx context.Context, roomID uint) ([]models.IcebreakerAnswer, error)
}

type icebreakerRepository struct {
	db *gorm.DB
}

// NewIcebreakerRepository returns a new IcebreakerRepository implementation.
func NewIcebreakerRepository(db *gorm.DB) IcebreakerRepository {
	return &icebreakerRepository{db: db}
}

// SaveAnswers stores one submission. Answers are immutable, so a second
// submission for the same room and user is a conflict.
func (r *icebreakerRepository) SaveAnswers(ctx context.Context, roomID, userID uint, answers []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.IcebreakerAnswer{}).
			Where("room_id = ? AND user_id = ?", roomID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.NewConflictError("Icebreaker answers were already submitted")
		}
		rows := make([]models.IcebreakerAnswer, 0, len(answers))
		for i, a := range answers {
			rows = append(rows, models.IcebreakerAnswer{RoomID: roomID, UserID: userID, QuestionIndex: i, Answer: a})
		}
		if err := tx.Create(&rows).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewConflictError("Icebreaker answers were already submitted")
			}
			return err
		}
		return nil
	})
	return wrap(err)
}

func (r *icebreakerRepository) ListAnswers(ctx context.Context, roomID uint) ([]models.IcebreakerAnswer, error) {
	var rows []models.IcebreakerAnswer
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).
		Order("user_id ASC").Order("question_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
