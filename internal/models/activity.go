package models

import "time"

// DailyActiveUser records that a user was seen on a day.
type DailyActiveUser struct {
	Day         string    `gorm:"primaryKey;size:10" json:"day"`
	UserID      uint      `gorm:"primaryKey" json:"user_id"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// DailyStat aggregates one day of activity.
type DailyStat struct {
	Day          string `json:"day"`
	ActiveUsers  int64  `json:"active_users"`
	RequestsSent int64  `json:"requests_sent"`
}

// IcebreakerAnswer is one participant's answer to one question in a room.
type IcebreakerAnswer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoomID        uint      `gorm:"not null;uniqueIndex:idx_icebreaker_answer" json:"room_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_icebreaker_answer" json:"user_id"`
	QuestionIndex int       `gorm:"not null;uniqueIndex:idx_icebreaker_answer" json:"question_index"`
	Answer        string    `gorm:"size:200;not null" json:"answer"`
	CreatedAt     time.Time `json:"created_at"`
}

// User flag keys mirrored from the client's local storage.
const (
	FlagSeenIntro         = "seen_intro"
	FlagSeenNotice        = "seen_notice"
	FlagInstallPrompt     = "install_prompt"
	FlagSeenNoticeVersion = "seen_notice_version"
)

// AllowedFlagKeys lists the keys accepted by the flags endpoint.
var AllowedFlagKeys = map[string]bool{
	FlagSeenIntro:         true,
	FlagSeenNotice:        true,
	FlagInstallPrompt:     true,
	FlagSeenNoticeVersion: true,
}

// UserFlag is one persisted UI flag.
type UserFlag struct {
	UserID    uint      `gorm:"primaryKey" json:"-"`
	Key       string    `gorm:"primaryKey;size:32" json:"key"`
	Value     string    `gorm:"size:64;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PushSubscription is a device token registered for push delivery.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Platform  string    `gorm:"size:16;not null" json:"platform"`
	Token     string    `gorm:"size:512;not null;uniqueIndex" json:"token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PushPlatforms are the accepted subscription platforms.
var PushPlatforms = map[string]bool{"web": true, "android": true, "ios": true}
