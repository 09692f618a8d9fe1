package models

import "time"

const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// MessageRequest is a proposal to open a chat that the recipient answers once.
type MessageRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    uint       `gorm:"not null;index:idx_request_pair" json:"sender_id"`
	RecipientID uint       `gorm:"not null;index:idx_request_pair;index:idx_request_inbox" json:"recipient_id"`
	Message     string     `gorm:"size:300;not null" json:"message"`
	Status      string     `gorm:"size:10;not null;default:pending;index:idx_request_inbox" json:"status"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Sender    *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Recipient *User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// DailyMessageRequest counts requests sent by one user on one day.
type DailyMessageRequest struct {
	Day      string `gorm:"primaryKey;size:10" json:"day"`
	SenderID uint   `gorm:"primaryKey" json:"sender_id"`
	Count    int    `gorm:"not null;default:0" json:"count"`
}

// RequestView is a request as listed to one side of it.
type RequestView struct {
	ID          uint         `json:"id"`
	Message     string       `json:"message"`
	Status      string       `json:"status"`
	Sender      *UserSummary `json:"sender,omitempty"`
	Recipient   *UserSummary `json:"recipient,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	RespondedAt *time.Time   `json:"responded_at,omitempty"`
}

// View projects r with the loaded associations.
func (r *MessageRequest) View() RequestView {
	return RequestView{
		ID:          r.ID,
		Message:     r.Message,
		Status:      r.Status,
		Sender:      r.Sender.Summary(),
		Recipient:   r.Recipient.Summary(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		RespondedAt: r.RespondedAt,
	}
}

// RequestQuota reports the sender's daily allowance.
type RequestQuota struct {
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}
