package repository

import (
	"context"
	"errors"
	"time"

	"hongdating/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines persistence operations for rooms and messages.
type ChatRepository interface {
	GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error)
	FindRoomBetween(ctx context.Context, a, b uint) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	CreateMessage(ctx context.Context, room *models.ChatRoom, senderID uint, content string) (*models.Message, *models.ChatRoom, error)
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, roomID uint, limit int, beforeID uint) ([]models.Message, error)
	MarkRead(ctx context.Context, roomID, userID uint) (int64, time.Time, error)
	DeleteRoom(ctx context.Context, roomID uint) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).Preload("UserA").Preload("UserB").First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Room", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &room, nil
}

func (r *chatRepository) FindRoomBetween(ctx context.Context, a, b uint) (*models.ChatRoom, error) {
	lo, hi := models.OrderedPair(a, b)
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).Where("user_a_id = ? AND user_b_id = ?", lo, hi).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &room, nil
}

// ListRooms returns userID's rooms, most recently active first. Rooms with
// no message yet sort last.
func (r *chatRepository) ListRooms(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("UserA").Preload("UserB").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("CASE WHEN last_message_at IS NULL THEN 1 ELSE 0 END").
		Order("last_message_at DESC").
		Order("id DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rooms, nil
}

// CreateMessage stores the message and updates the room summary and the
// partner's unread counter together.
func (r *chatRepository) CreateMessage(ctx context.Context, room *models.ChatRoom, senderID uint, content string) (*models.Message, *models.ChatRoom, error) {
	if !room.HasParticipant(senderID) {
		return nil, nil, models.NewForbiddenError("You are not a participant of this room")
	}
	msg := &models.Message{
		RoomID:      room.ID,
		SenderID:    senderID,
		RecipientID: room.PartnerOf(senderID),
		Content:     content,
	}

	var updated models.ChatRoom
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		unreadCol := "unread_b"
		if room.UserAID == msg.RecipientID {
			unreadCol = "unread_a"
		}
		res := tx.Model(&models.ChatRoom{}).Where("id = ?", room.ID).Updates(map[string]interface{}{
			"last_message":           content,
			"last_message_sender_id": senderID,
			"last_message_at":        msg.CreatedAt,
			unreadCol:                gorm.Expr(unreadCol + " + 1"),
			"updated_at":             time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Room", room.ID)
		}
		return tx.Preload("UserA").Preload("UserB").First(&updated, room.ID).Error
	})
	if err != nil {
		return nil, nil, wrap(err)
	}
	return msg, &updated, nil
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

// ListMessages returns up to limit messages older than beforeID (or the
// latest when beforeID is 0), oldest first.
func (r *chatRepository) ListMessages(ctx context.Context, roomID uint, limit int, beforeID uint) ([]models.Message, error) {
	limit, _ = clampPage(limit, 0)
	q := readDB(r.db).WithContext(ctx).Where("room_id = ?", roomID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var msgs []models.Message
	if err := q.Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkRead flips every unread message for userID in the room and zeroes
// their counter. It returns the number of messages flipped and the room's
// new updated_at.
func (r *chatRepository) MarkRead(ctx context.Context, roomID, userID uint) (int64, time.Time, error) {
	var flipped int64
	updatedAt := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.ChatRoom
		if err := tx.Select("id", "user_a_id", "user_b_id").First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Room", roomID)
			}
			return err
		}
		if !room.HasParticipant(userID) {
			return models.NewForbiddenError("You are not a participant of this room")
		}
		res := tx.Model(&models.Message{}).
			Where("room_id = ? AND recipient_id = ? AND read = ?", roomID, userID, false).
			Update("read", true)
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected

		col := "unread_b"
		if room.UserAID == userID {
			col = "unread_a"
		}
		return tx.Model(&models.ChatRoom{}).Where("id = ?", roomID).
			UpdateColumns(map[string]interface{}{col: 0, "updated_at": updatedAt}).Error
	})
	if err != nil {
		return 0, time.Time{}, wrap(err)
	}
	return flipped, updatedAt, nil
}

func (r *chatRepository) DeleteRoom(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.IcebreakerAnswer{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ChatRoom{}, roomID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Room", roomID)
		}
		return nil
	})
	return wrap(err)
}
