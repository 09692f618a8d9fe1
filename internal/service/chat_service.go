package service

import (
	"context"
	"strconv"
	"time"

	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/observability"
	"hongdating/internal/push"
	"hongdating/internal/repository"
	"hongdating/internal/validation"
)

type ChatService struct {
	chatRepo repository.ChatRepository
	pub      EventPublisher
	pusher   PushNotifier
	presence PresenceChecker
}

func NewChatService(chatRepo repository.ChatRepository, pub EventPublisher, pusher PushNotifier, presence PresenceChecker) *ChatService {
	if pub == nil {
		pub = nopPublisher{}
	}
	if pusher == nil {
		pusher = nopPusher{}
	}
	return &ChatService{chatRepo: chatRepo, pub: pub, pusher: pusher, presence: presence}
}

// ListRooms returns userID's rooms projected from their side.
func (s *ChatService) ListRooms(ctx context.Context, userID uint) ([]models.RoomView, error) {
	rooms, err := s.chatRepo.ListRooms(ctx, userID)
	if err != nil {
		return nil, err
	}
	return roomViews(rooms, userID), nil
}

func roomViews(rooms []models.ChatRoom, userID uint) []models.RoomView {
	out := make([]models.RoomView, 0, len(rooms))
	for i := range rooms {
		out = append(out, rooms[i].ViewFor(userID))
	}
	return out
}

// Room loads roomID for a participant.
func (s *ChatService) Room(ctx context.Context, roomID, userID uint) (*models.ChatRoom, error) {
	room, err := s.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, models.NewForbiddenError("You are not a participant of this room")
	}
	return room, nil
}

func (s *ChatService) GetRoom(ctx context.Context, roomID, userID uint) (*models.RoomView, error) {
	room, err := s.Room(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	v := room.ViewFor(userID)
	return &v, nil
}

// ListMessages pages backwards from beforeID; pages are returned oldest first.
func (s *ChatService) ListMessages(ctx context.Context, roomID, userID uint, limit int, beforeID uint) ([]models.Message, error) {
	if _, err := s.Room(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListMessages(ctx, roomID, limit, beforeID)
}

// SendMessage stores content from senderID and fans it out to the room and
// both inboxes. A partner without a live socket gets a push.
func (s *ChatService) SendMessage(ctx context.Context, roomID, senderID uint, content string) (*models.Message, error) {
	content, err := validation.Text("content", content, 1, validation.ChatMessageMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	room, err := s.Room(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}

	msg, updated, err := s.chatRepo.CreateMessage(ctx, room, senderID, content)
	if err != nil {
		return nil, err
	}
	observability.MessagesTotal.Inc()

	publishRoom(ctx, s.pub, room.ID, notifications.EventMessage, msg)
	publishRoomUpdated(ctx, s.pub, updated)

	if s.presence == nil || !s.presence.IsOnline(msg.RecipientID) {
		sender := participant(updated, senderID)
		title := "New message"
		if sender != nil && sender.Nickname != "" {
			title = sender.Nickname
		}
		roomRef := strconv.FormatUint(uint64(room.ID), 10)
		s.pusher.Notify(msg.RecipientID, push.Notification{
			Title: title,
			Body:  truncate(content, 80),
			Data: map[string]string{
				"type":    push.TypeMessage,
				"room_id": roomRef,
				"url":     "/rooms/" + roomRef,
			},
		})
	}
	return msg, nil
}

// MarkRead acknowledges everything userID has received in the room.
func (s *ChatService) MarkRead(ctx context.Context, roomID, userID uint) (int64, error) {
	flipped, updatedAt, err := s.chatRepo.MarkRead(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	publishRoom(ctx, s.pub, roomID, notifications.EventRead, notifications.ReadPayload{UserID: userID, Count: flipped})
	publishUser(ctx, s.pub, userID, notifications.EventUnreadChanged,
		notifications.UnreadChangedPayload{RoomID: roomID, UnreadCount: 0}, notifications.VersionOf(updatedAt))
	return flipped, nil
}

// Typing relays a typing indicator. Callers have already checked
// membership when the socket joined.
func (s *ChatService) Typing(ctx context.Context, roomID, userID uint, isTyping bool) {
	publishRoom(ctx, s.pub, roomID, notifications.EventTyping, notifications.TypingPayload{UserID: userID, IsTyping: isTyping})
}

// Leave deletes the room for both participants.
func (s *ChatService) Leave(ctx context.Context, roomID, userID uint) error {
	room, err := s.Room(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if err := s.chatRepo.DeleteRoom(ctx, room.ID); err != nil {
		return err
	}
	publishRoomClosed(ctx, s.pub, room, s.now())
	return nil
}

func (s *ChatService) now() time.Time { return timeNow() }
