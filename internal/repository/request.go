package repository

import (
	"context"
	"errors"
	"time"

	"hongdating/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AcceptResult is what an accepted request produced.
type AcceptResult struct {
	Request *models.MessageRequest
	Room    *models.ChatRoom
	Message *models.Message
}

// RequestRepository defines persistence operations for message requests.
type RequestRepository interface {
	CreateWithQuota(ctx context.Context, req *models.MessageRequest, day string, limit int) error
	GetByID(ctx context.Context, id uint) (*models.MessageRequest, error)
	ListReceived(ctx context.Context, recipientID uint, status string, limit, offset int) ([]models.MessageRequest, error)
	ListSent(ctx context.Context, senderID uint, limit, offset int) ([]models.MessageRequest, error)
	ListPending(ctx context.Context, recipientID uint) ([]models.MessageRequest, error)
	CountSent(ctx context.Context, senderID uint, day string) (int, error)
	Accept(ctx context.Context, id, recipientID uint) (*AcceptResult, error)
	Reject(ctx context.Context, id, recipientID uint) (*models.MessageRequest, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// CreateWithQuota charges the sender's daily quota and stores req. The
// quota row is bumped with a guarded UPDATE so two concurrent sends can
// never both take the last slot.
func (r *requestRepository) CreateWithQuota(ctx context.Context, req *models.MessageRequest, day string, limit int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.DailyMessageRequest{Day: day, SenderID: req.SenderID, Count: 0}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.DailyMessageRequest{}).
			Where("day = ? AND sender_id = ? AND count < ?", day, req.SenderID, limit).
			Update("count", gorm.Expr("count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewDailyLimitError(limit)
		}

		var pending int64
		if err := tx.Model(&models.MessageRequest{}).
			Where("status = ?", models.RequestStatusPending).
			Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
				req.SenderID, req.RecipientID, req.RecipientID, req.SenderID).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return models.NewConflictError("A pending request already exists between these users")
		}

		a, b := models.OrderedPair(req.SenderID, req.RecipientID)
		var rooms int64
		if err := tx.Model(&models.ChatRoom{}).Where("user_a_id = ? AND user_b_id = ?", a, b).Count(&rooms).Error; err != nil {
			return err
		}
		if rooms > 0 {
			return models.NewConflictError("You already have a chat room with this user")
		}

		req.Status = models.RequestStatusPending
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", req.RecipientID).
			Update("pending_request_count", gorm.Expr("pending_request_count + 1")).Error
	})
	return wrap(err)
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.MessageRequest, error) {
	var req models.MessageRequest
	if err := r.db.WithContext(ctx).Preload("Sender").Preload("Recipient").First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *requestRepository) ListReceived(ctx context.Context, recipientID uint, status string, limit, offset int) ([]models.MessageRequest, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Preload("Sender").Where("recipient_id = ?", recipientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []models.MessageRequest
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *requestRepository) ListSent(ctx context.Context, senderID uint, limit, offset int) ([]models.MessageRequest, error) {
	limit, offset = clampPage(limit, offset)
	var reqs []models.MessageRequest
	err := readDB(r.db).WithContext(ctx).Preload("Recipient").
		Where("sender_id = ?", senderID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&reqs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// ListPending returns every pending request addressed to recipientID.
func (r *requestRepository) ListPending(ctx context.Context, recipientID uint) ([]models.MessageRequest, error) {
	var reqs []models.MessageRequest
	err := r.db.WithContext(ctx).Preload("Sender").
		Where("recipient_id = ? AND status = ?", recipientID, models.RequestStatusPending).
		Order("created_at DESC").Order("id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *requestRepository) CountSent(ctx context.Context, senderID uint, day string) (int, error) {
	var row models.DailyMessageRequest
	err := r.db.WithContext(ctx).Where("day = ? AND sender_id = ?", day, senderID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, models.NewInternalError(err)
	}
	return row.Count, nil
}

// loadPendingForRecipient locks the request and checks it may be answered
// by recipientID.
func loadPendingForRecipient(tx *gorm.DB, id, recipientID uint) (*models.MessageRequest, error) {
	var req models.MessageRequest
	if err := forUpdate(tx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, err
	}
	if req.RecipientID != recipientID {
		return nil, models.NewForbiddenError("Only the recipient can answer this request")
	}
	if req.Status != models.RequestStatusPending {
		return nil, models.NewConflictError("Request has already been " + req.Status)
	}
	return &req, nil
}

// Accept marks the request accepted, opens the room and seeds it with the
// request text as its first message, all in one transaction.
func (r *requestRepository) Accept(ctx context.Context, id, recipientID uint) (*AcceptResult, error) {
	result := &AcceptResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadPendingForRecipient(tx, id, recipientID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		req.Status = models.RequestStatusAccepted
		req.RespondedAt = &now
		if err := tx.Model(req).Updates(map[string]interface{}{
			"status":       req.Status,
			"responded_at": now,
		}).Error; err != nil {
			return err
		}
		if err := decrementPending(tx, req.RecipientID); err != nil {
			return err
		}

		a, b := models.OrderedPair(req.SenderID, req.RecipientID)
		var existing int64
		if err := tx.Model(&models.ChatRoom{}).Where("user_a_id = ? AND user_b_id = ?", a, b).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.NewConflictError("A chat room already exists for these users")
		}

		room := &models.ChatRoom{UserAID: a, UserBID: b, RequestID: req.ID}
		if err := tx.Create(room).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewConflictError("A chat room already exists for these users")
			}
			return err
		}

		msg := &models.Message{
			RoomID:      room.ID,
			SenderID:    req.SenderID,
			RecipientID: req.RecipientID,
			Content:     req.Message,
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		senderID := req.SenderID
		room.LastMessage = msg.Content
		room.LastMessageSenderID = &senderID
		room.LastMessageAt = &msg.CreatedAt
		if room.UserAID == req.RecipientID {
			room.UnreadA = 1
		} else {
			room.UnreadB = 1
		}
		if err := tx.Model(room).Updates(map[string]interface{}{
			"last_message":           room.LastMessage,
			"last_message_sender_id": senderID,
			"last_message_at":        msg.CreatedAt,
			"unread_a":               room.UnreadA,
			"unread_b":               room.UnreadB,
		}).Error; err != nil {
			return err
		}

		result.Request = req
		result.Room = room
		result.Message = msg
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}

	var room models.ChatRoom
	if err := r.db.WithContext(ctx).Preload("UserA").Preload("UserB").First(&room, result.Room.ID).Error; err == nil {
		result.Room = &room
	}
	return result, nil
}

// Reject marks a pending request rejected and releases the counter.
func (r *requestRepository) Reject(ctx context.Context, id, recipientID uint) (*models.MessageRequest, error) {
	var out *models.MessageRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadPendingForRecipient(tx, id, recipientID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		req.Status = models.RequestStatusRejected
		req.RespondedAt = &now
		if err := tx.Model(req).Updates(map[string]interface{}{
			"status":       req.Status,
			"responded_at": now,
		}).Error; err != nil {
			return err
		}
		if err := decrementPending(tx, req.RecipientID); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}
