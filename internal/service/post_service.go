package service

import (
	"context"

	"hongdating/internal/cache"
	"hongdating/internal/models"
	"hongdating/internal/repository"
	"hongdating/internal/storage"
	"hongdating/internal/validation"
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	media    *MediaService
}

type CreatePostInput struct {
	UserID    uint
	Content   string
	ImageKeys []string
}

type UpdatePostInput struct {
	UserID    uint
	PostID    uint
	Content   string
	ImageKeys *[]string
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, media *MediaService) *PostService {
	return &PostService{postRepo: postRepo, userRepo: userRepo, media: media}
}

// imageRefs checks every key was uploaded by userID and resolves its URL.
func (s *PostService) imageRefs(userID uint, keys []string) (models.StringList, models.StringList, error) {
	if len(keys) > validation.PostMaxImages {
		return nil, nil, models.NewValidationError("A post can have at most 4 images")
	}
	outKeys := make(models.StringList, 0, len(keys))
	urls := make(models.StringList, 0, len(keys))
	for _, key := range keys {
		if !storage.OwnedBy(key, storage.PrefixPosts, userID) {
			return nil, nil, models.NewValidationError("Invalid image key")
		}
		outKeys = append(outKeys, key)
		urls = append(urls, s.media.URL(key))
	}
	return outKeys, urls, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.PostView, error) {
	content, err := validation.Text("content", in.Content, 1, validation.PostContentMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	keys, urls, err := s.imageRefs(in.UserID, in.ImageKeys)
	if err != nil {
		return nil, err
	}
	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !author.ProfileCompleted {
		return nil, models.NewForbiddenError("Complete your profile before posting")
	}

	authorID := in.UserID
	post := &models.Post{AuthorID: &authorID, Content: content, ImageKeys: keys, ImageURLs: urls}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = author
	cache.InvalidateFeed(ctx)
	v := post.View("")
	return &v, nil
}

// UploadImage stores one post image and returns the key to attach.
func (s *PostService) UploadImage(ctx context.Context, userID uint, contentType string, content []byte) (storage.Object, error) {
	return s.media.StoreImage(ctx, userID, storage.PrefixPosts, contentType, content, true)
}

func (s *PostService) ImageUploadURL(ctx context.Context, userID uint, contentType string) (*PresignedUpload, error) {
	return s.media.PresignImage(ctx, userID, storage.PrefixPosts, contentType)
}

// ListPosts returns a feed page for viewerID, cached per page.
func (s *PostService) ListPosts(ctx context.Context, viewerID uint, limit, offset int) ([]models.PostView, error) {
	var views []models.PostView
	err := cache.Aside(ctx, cache.FeedPageKey(ctx, viewerID, limit, offset), &views, cache.FeedPageTTL, func() error {
		posts, err := s.postRepo.List(ctx, viewerID, limit, offset)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(posts))
		for _, p := range posts {
			ids = append(ids, p.ID)
		}
		mine, err := s.postRepo.ReactionsFor(ctx, viewerID, ids)
		if err != nil {
			return err
		}
		views = make([]models.PostView, 0, len(posts))
		for i := range posts {
			views = append(views, posts[i].View(mine[posts[i].ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// GetPost returns the post with its comments. Posts by users blocked in
// either direction look absent.
func (s *PostService) GetPost(ctx context.Context, viewerID, postID uint) (*models.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != nil && *post.AuthorID != viewerID {
		blocked, err := s.userRepo.IsBlocked(ctx, viewerID, *post.AuthorID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, models.NewNotFoundError("Post", postID)
		}
	}
	mine, err := s.postRepo.ReactionsFor(ctx, viewerID, []uint{post.ID})
	if err != nil {
		return nil, err
	}
	v := post.View(mine[post.ID])
	if v.Comments == nil {
		v.Comments = []models.CommentView{}
	}
	return &v, nil
}

func (s *PostService) ownPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID == nil || *post.AuthorID != userID {
		return nil, models.NewForbiddenError("Only the author can change this post")
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.PostView, error) {
	content, err := validation.Text("content", in.Content, 1, validation.PostContentMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	post, err := s.ownPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}

	var dropped []string
	if in.ImageKeys != nil {
		keys, urls, err := s.imageRefs(in.UserID, *in.ImageKeys)
		if err != nil {
			return nil, err
		}
		dropped = missingFrom(post.ImageKeys, keys)
		post.ImageKeys, post.ImageURLs = keys, urls
	}
	post.Content = content
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	for _, key := range dropped {
		s.media.Remove(ctx, key)
	}
	cache.InvalidateFeed(ctx)
	return s.GetPost(ctx, in.UserID, post.ID)
}

func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.ownPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	for _, key := range post.ImageKeys {
		s.media.Remove(ctx, key)
	}
	cache.InvalidateFeed(ctx)
	return nil
}

// ReactionResult is the post's counters after a toggle.
type ReactionResult struct {
	PostID       uint   `json:"post_id"`
	LikeCount    int    `json:"like_count"`
	DislikeCount int    `json:"dislike_count"`
	MyReaction   string `json:"my_reaction"`
}

func (s *PostService) React(ctx context.Context, userID, postID uint, kind string) (*ReactionResult, error) {
	if kind != models.ReactionLike && kind != models.ReactionDislike {
		return nil, models.NewValidationError("kind must be like or dislike")
	}
	if _, err := s.GetPost(ctx, userID, postID); err != nil {
		return nil, err
	}
	post, mine, err := s.postRepo.ToggleReaction(ctx, postID, userID, kind)
	if err != nil {
		return nil, err
	}
	cache.InvalidateFeed(ctx)
	return &ReactionResult{
		PostID:       post.ID,
		LikeCount:    post.LikeCount,
		DislikeCount: post.DislikeCount,
		MyReaction:   mine,
	}, nil
}

func (s *PostService) AddComment(ctx context.Context, userID, postID uint, body string) (*models.CommentView, error) {
	body, err := validation.Text("body", body, 1, validation.CommentMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	if _, err := s.GetPost(ctx, userID, postID); err != nil {
		return nil, err
	}
	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	authorID := userID
	comment := &models.Comment{PostID: postID, AuthorID: &authorID, Body: body}
	if err := s.postRepo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = author
	cache.InvalidateFeed(ctx)
	v := comment.View()
	return &v, nil
}

func (s *PostService) postComment(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	comment, err := s.postRepo.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return comment, nil
}

func (s *PostService) UpdateComment(ctx context.Context, userID, postID, commentID uint, body string) (*models.CommentView, error) {
	body, err := validation.Text("body", body, 1, validation.CommentMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	comment, err := s.postComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID == nil || *comment.AuthorID != userID {
		return nil, models.NewForbiddenError("Only the author can edit this comment")
	}
	comment.Body = body
	if err := s.postRepo.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}
	v := comment.View()
	return &v, nil
}

// DeleteComment allows the comment author and the post author.
func (s *PostService) DeleteComment(ctx context.Context, userID, postID, commentID uint) error {
	comment, err := s.postComment(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID == nil || *comment.AuthorID != userID {
		post, err := s.postRepo.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID == nil || *post.AuthorID != userID {
			return models.NewForbiddenError("Only the comment or post author can delete this comment")
		}
	}
	if err := s.postRepo.DeleteComment(ctx, comment); err != nil {
		return err
	}
	cache.InvalidateFeed(ctx)
	return nil
}

func missingFrom(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, k := range after {
		keep[k] = struct{}{}
	}
	var out []string
	for _, k := range before {
		if _, ok := keep[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
