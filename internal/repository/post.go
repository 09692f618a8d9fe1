package repository

import (
	"context"
	"errors"

	"hongdating/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts, comments and
// post reactions.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, viewerID uint, limit, offset int) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ReactionsFor(ctx context.Context, userID uint, postIDs []uint) (map[uint]string, error)
	ToggleReaction(ctx context.Context, postID, userID uint, kind string) (*models.Post, string, error)

	GetComment(ctx context.Context, id uint) (*models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, comment *models.Comment) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Comments.Author").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// List returns the feed page for viewerID, newest first, without posts by
// users blocked in either direction.
func (r *postRepository) List(ctx context.Context, viewerID uint, limit, offset int) ([]models.Post, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Preload("Author")
	if viewerID != 0 {
		q = q.Where("author_id IS NULL OR (author_id NOT IN (SELECT blocked_id FROM user_blocks WHERE blocker_id = ?) "+
			"AND author_id NOT IN (SELECT blocker_id FROM user_blocks WHERE blocked_id = ?))", viewerID, viewerID)
	}
	var posts []models.Post
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).Updates(map[string]interface{}{
		"content":    post.Content,
		"image_keys": post.ImageKeys,
		"image_urls": post.ImageURLs,
	}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	return wrap(err)
}

// ReactionsFor maps each of postIDs that userID reacted to onto the kind.
func (r *postRepository) ReactionsFor(ctx context.Context, userID uint, postIDs []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return out, nil
	}
	var rows []models.PostReaction
	if err := r.db.WithContext(ctx).Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.PostID] = row.Kind
	}
	return out, nil
}

// ToggleReaction applies kind for userID. Repeating the current kind clears
// the reaction; the other kind switches it. It returns the post with fresh
// counters and the caller's reaction afterwards.
func (r *postRepository) ToggleReaction(ctx context.Context, postID, userID uint, kind string) (*models.Post, string, error) {
	var (
		post models.Post
		mine string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}

		var existing models.PostReaction
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.PostReaction{PostID: postID, UserID: userID, Kind: kind}).Error; err != nil {
				return err
			}
			if err := bumpReaction(tx, postID, kind, 1); err != nil {
				return err
			}
			mine = kind
		case err != nil:
			return err
		case existing.Kind == kind:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := bumpReaction(tx, postID, kind, -1); err != nil {
				return err
			}
		default:
			if err := tx.Model(&existing).Update("kind", kind).Error; err != nil {
				return err
			}
			if err := bumpReaction(tx, postID, existing.Kind, -1); err != nil {
				return err
			}
			if err := bumpReaction(tx, postID, kind, 1); err != nil {
				return err
			}
			mine = kind
		}
		return tx.First(&post, postID).Error
	})
	if err != nil {
		return nil, "", wrap(err)
	}
	return &post, mine, nil
}

func bumpReaction(tx *gorm.DB, postID uint, kind string, delta int) error {
	col := reactionColumn(kind)
	q := tx.Model(&models.Post{}).Where("id = ?", postID)
	if delta < 0 {
		q = q.Where(col + " > 0")
	}
	return q.UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
}

func (r *postRepository) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &c, nil
}

func (r *postRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", comment.PostID)
		}
		return tx.Create(comment).Error
	})
	return wrap(err)
}

func (r *postRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Model(comment).Update("body", comment.Body).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) DeleteComment(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Comment{}, comment.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", comment.ID)
		}
		return tx.Model(&models.Post{}).
			Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
	return wrap(err)
}
