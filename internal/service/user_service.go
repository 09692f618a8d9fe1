package service

import (
	"context"
	"strings"

	"hongdating/internal/cache"
	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/repository"
	"hongdating/internal/storage"
	"hongdating/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	media    *MediaService
	pub      EventPublisher
}

// ProfileInput carries a profile edit. Nil fields are left unchanged.
type ProfileInput struct {
	Nickname  *string   `json:"nickname"`
	Bio       *string   `json:"bio"`
	Gender    *string   `json:"gender"`
	Interests *[]string `json:"interests"`
}

// FeedInput filters the browse feed.
type FeedInput struct {
	ViewerID uint
	Gender   string
	Interest string
	Limit    int
	Offset   int
}

// cachedProfile is what the profile cache holds; reaction flags depend on
// the viewer and are computed after the read.
type cachedProfile struct {
	User      models.User           `json:"user"`
	Reactions []models.UserReaction `json:"reactions"`
}

func NewUserService(userRepo repository.UserRepository, media *MediaService, pub EventPublisher) *UserService {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &UserService{userRepo: userRepo, media: media, pub: pub}
}

// GetMe returns the caller with their reactions grouped by emoji.
func (s *UserService) GetMe(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	reactions, err := s.userRepo.ListReactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Reactions = make(map[string][]uint)
	for _, r := range reactions {
		user.Reactions[r.Emoji] = append(user.Reactions[r.Emoji], r.ReactorID)
	}
	return user, nil
}

// GetProfile returns id's public profile as seen by viewerID. Users blocked
// in either direction look absent.
func (s *UserService) GetProfile(ctx context.Context, viewerID, id uint) (*models.PublicProfile, error) {
	if viewerID != id {
		blocked, err := s.userRepo.IsBlocked(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, models.NewNotFoundError("User", id)
		}
	}

	var cp cachedProfile
	err := cache.Aside(ctx, cache.ProfileKey(id), &cp, cache.ProfileTTL, func() error {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		reactions, err := s.userRepo.ListReactions(ctx, id)
		if err != nil {
			return err
		}
		cp = cachedProfile{User: *user, Reactions: reactions}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !cp.User.ProfileCompleted && viewerID != id {
		return nil, models.NewNotFoundError("User", id)
	}
	return publicProfile(&cp.User, cp.Reactions, viewerID), nil
}

// UpdateProfile applies in. The first successful call must carry a
// nickname and a gender and marks the profile completed.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.ProfileCompleted {
		if in.Nickname == nil || strings.TrimSpace(*in.Nickname) == "" {
			return nil, models.NewValidationError("nickname is required")
		}
		if in.Gender == nil || *in.Gender == "" {
			return nil, models.NewValidationError("gender is required")
		}
	}

	if in.Nickname != nil {
		nickname := strings.TrimSpace(*in.Nickname)
		if err := validation.ValidateNickname(nickname); err != nil {
			return nil, validationErr(err)
		}
		key := validation.NicknameKey(nickname)
		existing, err := s.userRepo.GetByNicknameKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, models.NewConflictError("Nickname is already taken")
		}
		user.Nickname = nickname
		user.NicknameKey = &key
	}

	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if err := validation.ValidateBio(bio); err != nil {
			return nil, validationErr(err)
		}
		user.Bio = bio
	}

	if in.Gender != nil && *in.Gender != user.Gender {
		if user.Gender != "" {
			return nil, models.NewValidationError("gender cannot be changed")
		}
		if !models.IsValidGender(*in.Gender) {
			return nil, models.NewValidationError("gender must be male, female or other")
		}
		user.Gender = *in.Gender
	}

	if in.Interests != nil {
		tags, err := validation.NormalizeInterests(*in.Interests)
		if err != nil {
			return nil, validationErr(err)
		}
		user.Interests = tags
	}

	user.ProfileCompleted = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, userID)
	return user, nil
}

// Feed lists completed profiles for the browse screen.
func (s *UserService) Feed(ctx context.Context, in FeedInput) ([]models.PublicProfile, error) {
	if in.Gender != "" && !models.IsValidGender(in.Gender) {
		return nil, models.NewValidationError("gender must be male, female or other")
	}
	users, err := s.userRepo.ListFeed(ctx, repository.FeedFilter{
		ViewerID: in.ViewerID,
		Gender:   in.Gender,
		Interest: strings.TrimSpace(in.Interest),
		Limit:    in.Limit,
		Offset:   in.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, *publicProfile(&users[i], nil, in.ViewerID))
	}
	return out, nil
}

// React toggles emoji from reactorID on targetID's profile and returns the
// updated summaries.
func (s *UserService) React(ctx context.Context, reactorID, targetID uint, emoji string) ([]models.ReactionSummary, error) {
	if !models.IsAllowedReaction(emoji) {
		return nil, models.NewValidationError("Unsupported reaction")
	}
	if reactorID == targetID {
		return nil, models.NewValidationError("You cannot react to your own profile")
	}
	if _, err := loadReachableUser(ctx, s.userRepo, reactorID, targetID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.ToggleReaction(ctx, targetID, reactorID, emoji); err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, targetID)

	reactions, err := s.userRepo.ListReactions(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return reactionSummaries(reactions, reactorID), nil
}

func (s *UserService) Block(ctx context.Context, blockerID, blockedID uint) error {
	if blockerID == blockedID {
		return models.NewValidationError("You cannot block yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, blockedID); err != nil {
		return err
	}
	if err := s.userRepo.Block(ctx, blockerID, blockedID); err != nil {
		return err
	}
	cache.InvalidateFeed(ctx)
	return nil
}

func (s *UserService) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	if err := s.userRepo.Unblock(ctx, blockerID, blockedID); err != nil {
		return err
	}
	cache.InvalidateFeed(ctx)
	return nil
}

// UploadPhoto runs content through the image pipeline and makes it the
// profile photo.
func (s *UserService) UploadPhoto(ctx context.Context, userID uint, contentType string, content []byte) (*models.User, error) {
	obj, err := s.media.StoreImage(ctx, userID, storage.PrefixProfiles, contentType, content, false)
	if err != nil {
		return nil, err
	}
	user, err := s.setPhoto(ctx, userID, obj.Key)
	if err != nil {
		s.media.Remove(ctx, obj.Key)
		return nil, err
	}
	return user, nil
}

// PhotoUploadURL reserves a key for a direct upload. The client confirms it
// with SetPhoto afterwards.
func (s *UserService) PhotoUploadURL(ctx context.Context, userID uint, contentType string) (*PresignedUpload, error) {
	return s.media.PresignImage(ctx, userID, storage.PrefixProfiles, contentType)
}

// SetPhoto adopts an object uploaded through PhotoUploadURL.
func (s *UserService) SetPhoto(ctx context.Context, userID uint, key string) (*models.User, error) {
	if !storage.OwnedBy(key, storage.PrefixProfiles, userID) {
		return nil, models.NewValidationError("Invalid photo key")
	}
	return s.setPhoto(ctx, userID, key)
}

func (s *UserService) setPhoto(ctx context.Context, userID uint, key string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.PhotoKey
	user.PhotoKey = key
	user.PhotoURL = s.media.URL(key)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if previous != "" && previous != key {
		s.media.Remove(ctx, previous)
	}
	cache.InvalidateProfile(ctx, userID)
	return user, nil
}

// DeleteAccount removes userID, tells former partners their rooms closed and
// withdraws its pending requests from the recipients' inboxes.
// Revoking the caller's token is left to the handler, which holds it.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	deleted, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return err
	}

	s.media.Remove(ctx, user.PhotoKey)
	now := timeNow()
	ids := []uint{userID}
	for i := range deleted.ClosedRooms {
		publishRoomClosed(ctx, s.pub, &deleted.ClosedRooms[i], now)
		ids = append(ids, deleted.ClosedRooms[i].PartnerOf(userID))
	}
	// Withdrawn requests leave the recipients' inboxes like a rejection.
	for _, req := range deleted.WithdrawnRequests {
		publishUser(ctx, s.pub, req.RecipientID, notifications.EventRequestRejected,
			notifications.RequestRejectedPayload{RequestID: req.ID}, notifications.VersionOf(now))
		ids = append(ids, req.RecipientID)
	}
	ids = append(ids, deleted.ReactedUserIDs...)
	cache.InvalidateProfile(ctx, ids...)
	cache.InvalidateFeed(ctx)
	return nil
}

// loadReachableUser loads targetID unless it is missing, unfinished or
// blocked relative to viewerID.
func loadReachableUser(ctx context.Context, users repository.UserRepository, viewerID, targetID uint) (*models.User, error) {
	target, err := users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !target.ProfileCompleted {
		return nil, models.NewNotFoundError("User", targetID)
	}
	blocked, err := users.IsBlocked(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, models.NewNotFoundError("User", targetID)
	}
	return target, nil
}

func publicProfile(u *models.User, reactions []models.UserReaction, viewerID uint) *models.PublicProfile {
	interests := []string(u.Interests)
	if interests == nil {
		interests = []string{}
	}
	return &models.PublicProfile{
		ID:        u.ID,
		Nickname:  u.Nickname,
		Bio:       u.Bio,
		Gender:    u.Gender,
		PhotoURL:  u.PhotoURL,
		Interests: interests,
		Reactions: reactionSummaries(reactions, viewerID),
		CreatedAt: u.CreatedAt,
	}
}

// reactionSummaries counts reactions per emoji in the fixed emoji order,
// skipping emojis nobody used.
func reactionSummaries(reactions []models.UserReaction, viewerID uint) []models.ReactionSummary {
	counts := make(map[string]int, len(models.AllowedReactionEmojis))
	mine := make(map[string]bool)
	for _, r := range reactions {
		counts[r.Emoji]++
		if r.ReactorID == viewerID {
			mine[r.Emoji] = true
		}
	}
	out := make([]models.ReactionSummary, 0, len(counts))
	for _, emoji := range models.AllowedReactionEmojis {
		if counts[emoji] == 0 {
			continue
		}
		out = append(out, models.ReactionSummary{Emoji: emoji, Count: counts[emoji], Reacted: mine[emoji]})
	}
	return out
}
