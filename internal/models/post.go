package models

import "time"

const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// DeletedUserName is shown for content whose author deleted their account.
const DeletedUserName = "deleted user"

// Post is an entry in the community feed.
type Post struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AuthorID     *uint      `gorm:"index" json:"author_id"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	ImageKeys    StringList `gorm:"type:text" json:"-"`
	ImageURLs    StringList `gorm:"type:text" json:"image_urls"`
	LikeCount    int        `gorm:"not null;default:0" json:"like_count"`
	DislikeCount int        `gorm:"not null;default:0" json:"dislike_count"`
	CommentCount int        `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Author   *User     `gorm:"foreignKey:AuthorID" json:"-"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"-"`
}

// PostReaction is one user's like or dislike on a post.
type PostReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_reaction" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_reaction;index" json:"user_id"`
	Kind      string    `gorm:"size:10;not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a reply under a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	AuthorID  *uint     `gorm:"index" json:"author_id"`
	Body      string    `gorm:"size:500;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"-"`
}

// CommentView is a comment with its author card.
type CommentView struct {
	ID        uint         `json:"id"`
	PostID    uint         `json:"post_id"`
	Author    *UserSummary `json:"author"`
	Body      string       `json:"body"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PostView is a post as returned by the API.
type PostView struct {
	ID           uint          `json:"id"`
	Author       *UserSummary  `json:"author"`
	Content      string        `json:"content"`
	ImageURLs    []string      `json:"image_urls"`
	LikeCount    int           `json:"like_count"`
	DislikeCount int           `json:"dislike_count"`
	CommentCount int           `json:"comment_count"`
	MyReaction   string        `json:"my_reaction,omitempty"`
	Comments     []CommentView `json:"comments,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// authorCard renders a nil author as the deleted-user placeholder.
func authorCard(id *uint, u *User) *UserSummary {
	if id == nil || u == nil {
		return &UserSummary{Nickname: DeletedUserName}
	}
	return u.Summary()
}

// View renders c.
func (c *Comment) View() CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    authorCard(c.AuthorID, c.Author),
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// View renders p. myReaction is the viewer's kind, or empty.
func (p *Post) View(myReaction string) PostView {
	urls := []string(p.ImageURLs)
	if urls == nil {
		urls = []string{}
	}
	v := PostView{
		ID:           p.ID,
		Author:       authorCard(p.AuthorID, p.Author),
		Content:      p.Content,
		ImageURLs:    urls,
		LikeCount:    p.LikeCount,
		DislikeCount: p.DislikeCount,
		CommentCount: p.CommentCount,
		MyReaction:   myReaction,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if len(p.Comments) > 0 {
		v.Comments = make([]CommentView, 0, len(p.Comments))
		for i := range p.Comments {
			v.Comments = append(v.Comments, p.Comments[i].View())
		}
	}
	return v
}
