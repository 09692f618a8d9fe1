package repository

import (
	"context"
	"errors"
	"strings"

	"hongdating/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedFilter narrows the browse feed.
type FeedFilter struct {
	ViewerID uint
	Gender   string
	Interest string
	Limit    int
	Offset   int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*models.User, error)
	GetByNicknameKey(ctx context.Context, key string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ListFeed(ctx context.Context, f FeedFilter) ([]models.User, error)
	SetAdmin(ctx context.Context, id uint, admin bool) error
	ListAdmins(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id uint) (*DeletedAccount, error)

	ListReactions(ctx context.Context, targetID uint) ([]models.UserReaction, error)
	ToggleReaction(ctx context.Context, targetID, reactorID uint, emoji string) (bool, error)

	Block(ctx context.Context, blockerID, blockedID uint) error
	Unblock(ctx context.Context, blockerID, blockedID uint) error
	IsBlocked(ctx context.Context, a, b uint) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByNicknameKey(ctx context.Context, key string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("nickname_key = ?", key).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Nickname is already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) ListFeed(ctx context.Context, f FeedFilter) ([]models.User, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	q := readDB(r.db).WithContext(ctx).
		Where("profile_completed = ?", true).
		Where("id <> ?", f.ViewerID)
	q = excludeBlocked(q, "id", f.ViewerID)
	if f.Gender != "" {
		q = q.Where("gender = ?", f.Gender)
	}
	if f.Interest != "" {
		// Interests are a JSON array; match the quoted element.
		q = q.Where("interests LIKE ?", `%"`+strings.ReplaceAll(f.Interest, `"`, "")+`"%`)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", admin)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Delete removes the user and everything that only makes sense with them.
// Posts and comments stay, with the author cleared. The rooms that were
// closed are returned so callers can notify the former partners.
// DeletedAccount lists what removing a user touched beyond its own rows.
type DeletedAccount struct {
	ClosedRooms []models.ChatRoom
	// WithdrawnRequests are the user's pending outgoing requests.
	WithdrawnRequests []models.MessageRequest
	// ReactedUserIDs are users whose profile lost one of this user's reactions.
	ReactedUserIDs []uint
}

func (r *userRepository) Delete(ctx context.Context, id uint) (*DeletedAccount, error) {
	out := &DeletedAccount{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return err
		}

		if err := tx.Where("user_a_id = ? OR user_b_id = ?", id, id).Find(&out.ClosedRooms).Error; err != nil {
			return err
		}
		if len(out.ClosedRooms) > 0 {
			roomIDs := make([]uint, 0, len(out.ClosedRooms))
			for _, room := range out.ClosedRooms {
				roomIDs = append(roomIDs, room.ID)
			}
			if err := tx.Where("room_id IN ?", roomIDs).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("room_id IN ?", roomIDs).Delete(&models.IcebreakerAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", roomIDs).Delete(&models.ChatRoom{}).Error; err != nil {
				return err
			}
		}

		// Release the pending counters this user's open requests were holding.
		if err := tx.Where("sender_id = ? AND status = ?", id, models.RequestStatusPending).
			Order("id ASC").Find(&out.WithdrawnRequests).Error; err != nil {
			return err
		}
		for _, req := range out.WithdrawnRequests {
			if err := decrementPending(tx, req.RecipientID); err != nil {
				return err
			}
		}
		if err := tx.Where("sender_id = ? OR recipient_id = ?", id, id).Delete(&models.MessageRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sender_id = ?", id).Delete(&models.DailyMessageRequest{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.UserReaction{}).Where("reactor_id = ? AND target_user_id <> ?", id, id).
			Distinct().Pluck("target_user_id", &out.ReactedUserIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("target_user_id = ? OR reactor_id = ?", id, id).Delete(&models.UserReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blocker_id = ? OR blocked_id = ?", id, id).Delete(&models.UserBlock{}).Error; err != nil {
			return err
		}

		var reactions []models.PostReaction
		if err := tx.Where("user_id = ?", id).Find(&reactions).Error; err != nil {
			return err
		}
		for _, pr := range reactions {
			if err := tx.Model(&models.Post{}).Where("id = ?", pr.PostID).
				Update(reactionColumn(pr.Kind), gorm.Expr(reactionColumn(pr.Kind)+" - 1")).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.PostReaction{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Post{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return err
		}

		for _, model := range []interface{}{&models.UserFlag{}, &models.PushSubscription{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Complaint{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func (r *userRepository) ListReactions(ctx context.Context, targetID uint) ([]models.UserReaction, error) {
	var reactions []models.UserReaction
	if err := r.db.WithContext(ctx).Where("target_user_id = ?", targetID).Order("id ASC").Find(&reactions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reactions, nil
}

// ToggleReaction adds the reaction, or removes it when present. It reports
// whether the reaction is now set.
func (r *userRepository) ToggleReaction(ctx context.Context, targetID, reactorID uint, emoji string) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("target_user_id = ? AND reactor_id = ? AND emoji = ?", targetID, reactorID, emoji).
			Delete(&models.UserReaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserReaction{
			TargetUserID: targetID,
			ReactorID:    reactorID,
			Emoji:        emoji,
		}).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return added, nil
}

func (r *userRepository) Block(ctx context.Context, blockerID, blockedID uint) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserBlock{BlockerID: blockerID, BlockedID: blockedID}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.UserBlock{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IsBlocked reports whether either user blocked the other.
func (r *userRepository) IsBlocked(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func decrementPending(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.User{}).
		Where("id = ? AND pending_request_count > 0", userID).
		Update("pending_request_count", gorm.Expr("pending_request_count - 1")).Error
}

func reactionColumn(kind string) string {
	if kind == models.ReactionDislike {
		return "dislike_count"
	}
	return "like_count"
}
