package models

import "time"

const (
	ReportTargetUser    = "user"
	ReportTargetPost    = "post"
	ReportTargetMessage = "message"

	ReportStatusOpen      = "open"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"

	ComplaintStatusOpen     = "open"
	ComplaintStatusAnswered = "answered"
	ComplaintStatusClosed   = "closed"
)

// ReportReasons are the accepted reason codes for a report.
var ReportReasons = map[string]bool{
	"spam":          true,
	"harassment":    true,
	"inappropriate": true,
	"fake_profile":  true,
	"other":         true,
}

// ComplaintCategories are the accepted complaint categories.
var ComplaintCategories = map[string]bool{
	"bug":     true,
	"account": true,
	"safety":  true,
	"feature": true,
	"other":   true,
}

// Report flags a user, post or message for moderator review.
type Report struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReporterID     uint       `gorm:"not null;index:idx_report_reporter_target" json:"reporter_id"`
	TargetType     string     `gorm:"size:16;not null;index:idx_report_reporter_target" json:"target_type"`
	TargetID       uint       `gorm:"not null;index:idx_report_reporter_target" json:"target_id"`
	Reason         string     `gorm:"size:32;not null" json:"reason"`
	Detail         string     `gorm:"size:500" json:"detail"`
	AttachmentKey  string     `json:"-"`
	AttachmentURL  string     `json:"attachment_url,omitempty"`
	Status         string     `gorm:"size:16;not null;default:open;index" json:"status"`
	ResolutionNote string     `gorm:"size:500" json:"resolution_note,omitempty"`
	ResolvedBy     *uint      `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Complaint is a free-form message from a user to the operators.
type Complaint struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AuthorID      uint       `gorm:"not null;index" json:"author_id"`
	Category      string     `gorm:"size:16;not null" json:"category"`
	Body          string     `gorm:"size:2000;not null" json:"body"`
	AttachmentKey string     `json:"-"`
	AttachmentURL string     `json:"attachment_url,omitempty"`
	Status        string     `gorm:"size:16;not null;default:open;index" json:"status"`
	Answer        string     `gorm:"size:2000" json:"answer,omitempty"`
	AnsweredBy    *uint      `json:"answered_by,omitempty"`
	AnsweredAt    *time.Time `json:"answered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
