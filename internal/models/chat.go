package models

import "time"

// ChatRoom is a two-party conversation. Participants are stored ordered so
// the pair is unique regardless of who accepted.
type ChatRoom struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserAID             uint       `gorm:"not null;uniqueIndex:idx_room_pair" json:"user_a_id"`
	UserBID             uint       `gorm:"not null;uniqueIndex:idx_room_pair;index" json:"user_b_id"`
	RequestID           uint       `gorm:"not null;uniqueIndex" json:"request_id"`
	LastMessage         string     `gorm:"size:1000" json:"last_message"`
	LastMessageSenderID *uint      `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	UnreadA             int        `gorm:"not null;default:0" json:"-"`
	UnreadB             int        `gorm:"not null;default:0" json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	UserA *User `gorm:"foreignKey:UserAID" json:"-"`
	UserB *User `gorm:"foreignKey:UserBID" json:"-"`
}

// OrderedPair returns a and b with the smaller id first.
func OrderedPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r *ChatRoom) HasParticipant(userID uint) bool {
	return r.UserAID == userID || r.UserBID == userID
}

// PartnerOf returns the other participant's id.
func (r *ChatRoom) PartnerOf(userID uint) uint {
	if r.UserAID == userID {
		return r.UserBID
	}
	return r.UserAID
}

// UnreadFor returns userID's unread count.
func (r *ChatRoom) UnreadFor(userID uint) int {
	if r.UserAID == userID {
		return r.UnreadA
	}
	return r.UnreadB
}

func (r *ChatRoom) partner(userID uint) *User {
	if r.UserAID == userID {
		return r.UserB
	}
	return r.UserA
}

// ViewFor projects r from userID's side.
func (r *ChatRoom) ViewFor(userID uint) RoomView {
	v := RoomView{
		ID:                  r.ID,
		PartnerID:           r.PartnerOf(userID),
		LastMessage:         r.LastMessage,
		LastMessageSenderID: r.LastMessageSenderID,
		LastMessageAt:       r.LastMessageAt,
		UnreadCount:         r.UnreadFor(userID),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if p := r.partner(userID); p != nil {
		v.Partner = p.Summary()
	}
	return v
}

// Message is one chat line inside a room.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoomID      uint      `gorm:"not null;index:idx_message_room" json:"room_id"`
	SenderID    uint      `gorm:"not null" json:"sender_id"`
	RecipientID uint      `gorm:"not null;index:idx_message_unread" json:"recipient_id"`
	Content     string    `gorm:"size:1000;not null" json:"content"`
	Read        bool      `gorm:"not null;default:false;index:idx_message_unread" json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomView is a room as listed to one participant.
type RoomView struct {
	ID                  uint         `json:"id"`
	PartnerID           uint         `json:"partner_id"`
	Partner             *UserSummary `json:"partner,omitempty"`
	LastMessage         string       `json:"last_message"`
	LastMessageSenderID *uint        `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time   `json:"last_message_at,omitempty"`
	UnreadCount         int          `json:"unread_count"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}
