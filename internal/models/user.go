// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// AllowedReactionEmojis is the fixed emoji set for profile reactions.
var AllowedReactionEmojis = []string{"❤️", "😊", "😂", "👍", "🔥", "😮"}

// IsAllowedReaction reports whether emoji belongs to AllowedReactionEmojis.
func IsAllowedReaction(emoji string) bool {
	for _, e := range AllowedReactionEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

// IsValidGender reports whether g is one of the accepted genders.
func IsValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// User represents an anonymous member of the community.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	DeviceID         string     `gorm:"uniqueIndex;size:36;not null" json:"-"`
	DeviceSecretHash string     `gorm:"not null" json:"-"`
	Nickname         string     `gorm:"size:20" json:"nickname"`
	NicknameKey      *string    `gorm:"uniqueIndex;size:20" json:"-"`
	Bio              string     `gorm:"size:150" json:"bio"`
	Gender           string     `gorm:"size:10;index" json:"gender"`
	PhotoKey         string     `json:"-"`
	PhotoURL         string     `json:"photo_url"`
	Interests        StringList `gorm:"type:text" json:"interests"`
	ProfileCompleted bool       `gorm:"not null;default:false;index" json:"profile_completed"`
	// PendingRequestCount is the number of requests awaiting this user's answer.
	PendingRequestCount int       `gorm:"not null;default:0" json:"pending_request_count"`
	IsAdmin             bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Reactions maps emoji to the reacting user ids (computed).
	Reactions map[string][]uint `gorm:"-" json:"reactions,omitempty"`
}

// Summary returns the public card for u.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:       u.ID,
		Nickname: u.Nickname,
		PhotoURL: u.PhotoURL,
		Gender:   u.Gender,
	}
}

// UserSummary is the partner/author card embedded in other resources.
type UserSummary struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
	PhotoURL string `json:"photo_url"`
	Gender   string `json:"gender"`
}

// UserReaction is one emoji given by Reactor to Target.
type UserReaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TargetUserID uint      `gorm:"not null;uniqueIndex:idx_user_reaction" json:"target_user_id"`
	ReactorID    uint      `gorm:"not null;uniqueIndex:idx_user_reaction;index" json:"reactor_id"`
	Emoji        string    `gorm:"size:16;not null;uniqueIndex:idx_user_reaction" json:"emoji"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserBlock hides two users from each other.
type UserBlock struct {
	BlockerID uint      `gorm:"primaryKey" json:"blocker_id"`
	BlockedID uint      `gorm:"primaryKey;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionSummary is the public view of a profile's reactions.
type ReactionSummary struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	Reacted bool   `json:"reacted"`
}

// PublicProfile is what other users see.
type PublicProfile struct {
	ID        uint              `json:"id"`
	Nickname  string            `json:"nickname"`
	Bio       string            `json:"bio"`
	Gender    string            `json:"gender"`
	PhotoURL  string            `json:"photo_url"`
	Interests []string          `json:"interests"`
	Reactions []ReactionSummary `json:"reactions"`
	CreatedAt time.Time         `json:"created_at"`
}
