// Package seed fills a development database with demo users, requests,
// chat rooms and posts. It is not used by the running server.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hongdating/internal/database"
	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DeviceSecret is the device secret shared by every seeded account.
const DeviceSecret = "seed-device-secret"

// Options controls how much data Run creates.
type Options struct {
	Users           int
	Posts           int
	Rooms           int
	PendingRequests int
	MessagesPerRoom int
	Clean           bool
}

// DefaultOptions is a small but lively dataset.
func DefaultOptions() Options {
	return Options{Users: 30, Posts: 40, Rooms: 10, PendingRequests: 10, MessagesPerRoom: 6}
}

// Summary reports what Run created.
type Summary struct {
	Users     []models.User
	Requests  int
	Rooms     int
	Messages  int
	Posts     int
	Comments  int
	Reactions int
}

// Seeder writes demo data through GORM.
type Seeder struct {
	db      *gorm.DB
	fixture *Fixture
	faker   *gofakeit.Faker
	now     func() time.Time
}

// NewSeeder builds a seeder. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, fixture *Fixture, seed int64) *Seeder {
	return &Seeder{
		db:      db,
		fixture: fixture,
		faker:   gofakeit.New(seed),
		now:     time.Now,
	}
}

// ClearAll deletes every row of every schema-managed table.
func (s *Seeder) ClearAll(ctx context.Context) error {
	all := database.PersistentModels()
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// Run creates users, then requests and rooms between them, then feed content.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	sum := &Summary{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := s.createUsers(tx, opts.Users)
		if err != nil {
			return err
		}
		sum.Users = users
		if err := s.createConversations(tx, users, opts, sum); err != nil {
			return err
		}
		return s.createFeed(tx, users, opts.Posts, sum)
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", len(sum.Users)),
		slog.Int("requests", sum.Requests),
		slog.Int("rooms", sum.Rooms),
		slog.Int("messages", sum.Messages),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}

func (s *Seeder) createUsers(tx *gorm.DB, generated int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DeviceSecret), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash device secret: %w", err)
	}

	taken := make(map[string]struct{})
	var existing []string
	if err := tx.Model(&models.User{}).Where("nickname_key IS NOT NULL").Pluck("nickname_key", &existing).Error; err != nil {
		return nil, fmt.Errorf("load nicknames: %w", err)
	}
	for _, k := range existing {
		taken[k] = struct{}{}
	}

	users := make([]models.User, 0, len(s.fixture.Users)+generated)
	for _, fu := range s.fixture.Users {
		key := validation.NicknameKey(fu.Nickname)
		if _, dup := taken[key]; dup {
			continue
		}
		taken[key] = struct{}{}
		users = append(users, s.newUser(string(hash), fu.Nickname, key, fu.Gender, fu.Bio, fu.Interests, fu.Admin))
	}

	genders := []string{models.GenderMale, models.GenderFemale, models.GenderOther}
	for i := 0; i < generated; i++ {
		nickname := s.uniqueNickname(taken)
		users = append(users, s.newUser(string(hash), nickname, validation.NicknameKey(nickname),
			s.faker.RandomString(genders), s.bio(), s.interests(), false))
	}

	if len(users) == 0 {
		return users, nil
	}
	if err := tx.CreateInBatches(&users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

func (s *Seeder) newUser(hash, nickname, key, gender, bio string, interests []string, admin bool) models.User {
	k := key
	if interests == nil {
		interests = []string{}
	}
	return models.User{
		DeviceID:         uuid.NewString(),
		DeviceSecretHash: hash,
		Nickname:         nickname,
		NicknameKey:      &k,
		Bio:              bio,
		Gender:           gender,
		Interests:        interests,
		ProfileCompleted: true,
		IsAdmin:          admin,
		CreatedAt:        s.pastTime(60),
	}
}

// uniqueNickname derives a valid, unused nickname from a fake username.
func (s *Seeder) uniqueNickname(taken map[string]struct{}) string {
	for attempt := 0; ; attempt++ {
		name := strings.Map(func(r rune) rune {
			if r == '_' || r == '.' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
				return r
			}
			return -1
		}, s.faker.Username())
		if attempt > 5 {
			name = fmt.Sprintf("%s%d", name, s.faker.Number(10, 9999))
		}
		if len(name) > validation.NicknameMaxLen {
			name = name[:validation.NicknameMaxLen]
		}
		if validation.ValidateNickname(name) != nil {
			continue
		}
		key := validation.NicknameKey(name)
		if _, dup := taken[key]; dup {
			continue
		}
		taken[key] = struct{}{}
		return name
	}
}

func (s *Seeder) bio() string {
	bio := s.faker.Sentence(s.faker.Number(4, 12))
	if len(bio) > validation.BioMaxLen {
		bio = bio[:validation.BioMaxLen]
	}
	return bio
}

func (s *Seeder) interests() []string {
	pool := append([]string(nil), s.fixture.Interests...)
	s.faker.ShuffleStrings(pool)
	n := s.faker.Number(0, validation.MaxInterests)
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

// pastTime returns a moment within the last maxDays days.
func (s *Seeder) pastTime(maxDays int) time.Time {
	back := time.Duration(s.faker.Number(0, maxDays*24*60)) * time.Minute
	return s.now().Add(-back)
}

// pairs yields distinct unordered user pairs in random order.
func (s *Seeder) pairs(users []models.User, want int) [][2]*models.User {
	if len(users) < 2 || want <= 0 {
		return nil
	}
	seen := make(map[[2]uint]struct{})
	out := make([][2]*models.User, 0, want)
	maxPairs := len(users) * (len(users) - 1) / 2
	for len(out) < want && len(seen) < maxPairs {
		a := &users[s.faker.Number(0, len(users)-1)]
		b := &users[s.faker.Number(0, len(users)-1)]
		if a.ID == b.ID {
			continue
		}
		lo, hi := models.OrderedPair(a.ID, b.ID)
		if _, dup := seen[[2]uint{lo, hi}]; dup {
			continue
		}
		seen[[2]uint{lo, hi}] = struct{}{}
		out = append(out, [2]*models.User{a, b})
	}
	return out
}

// createConversations opens accepted rooms with a short history, then
// leaves a batch of requests pending. One pair never gets both.
func (s *Seeder) createConversations(tx *gorm.DB, users []models.User, opts Options, sum *Summary) error {
	pairs := s.pairs(users, opts.Rooms+opts.PendingRequests)
	for i, p := range pairs {
		sender, recipient := p[0], p[1]
		req := models.MessageRequest{
			SenderID:    sender.ID,
			RecipientID: recipient.ID,
			Message:     s.faker.RandomString(s.fixture.Openers),
			Status:      models.RequestStatusPending,
			CreatedAt:   s.pastTime(14),
		}
		accept := i < opts.Rooms
		if accept {
			answered := req.CreatedAt.Add(time.Duration(s.faker.Number(5, 600)) * time.Minute)
			req.Status = models.RequestStatusAccepted
			req.RespondedAt = &answered
		}
		if err := tx.Create(&req).Error; err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		sum.Requests++

		if !accept {
			if err := tx.Model(&models.User{}).Where("id = ?", recipient.ID).
				UpdateColumn("pending_request_count", gorm.Expr("pending_request_count + 1")).Error; err != nil {
				return fmt.Errorf("bump pending count: %w", err)
			}
			recipient.PendingRequestCount++
			continue
		}

		n, err := s.createRoom(tx, &req, opts.MessagesPerRoom)
		if err != nil {
			return err
		}
		sum.Rooms++
		sum.Messages += n
	}
	return nil
}

func (s *Seeder) createRoom(tx *gorm.DB, req *models.MessageRequest, messages int) (int, error) {
	a, b := models.OrderedPair(req.SenderID, req.RecipientID)
	room := models.ChatRoom{UserAID: a, UserBID: b, RequestID: req.ID, CreatedAt: *req.RespondedAt}
	if err := tx.Create(&room).Error; err != nil {
		return 0, fmt.Errorf("create room: %w", err)
	}

	at := *req.RespondedAt
	var last *models.Message
	for i := 0; i < messages; i++ {
		from, to := req.SenderID, req.RecipientID
		if s.faker.Bool() {
			from, to = to, from
		}
		at = at.Add(time.Duration(s.faker.Number(1, 180)) * time.Minute)
		if at.After(s.now()) {
			at = s.now()
		}
		msg := models.Message{
			RoomID:      room.ID,
			SenderID:    from,
			RecipientID: to,
			Content:     s.faker.Sentence(s.faker.Number(2, 14)),
			// Only the final message is left unread.
			Read:      i < messages-1,
			CreatedAt: at,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return 0, fmt.Errorf("create message: %w", err)
		}
		last = &msg
	}
	if last == nil {
		return 0, nil
	}

	updates := map[string]interface{}{
		"last_message":           last.Content,
		"last_message_sender_id": last.SenderID,
		"last_message_at":        last.CreatedAt,
	}
	if last.RecipientID == room.UserAID {
		updates["unread_a"] = 1
	} else {
		updates["unread_b"] = 1
	}
	if err := tx.Model(&room).Updates(updates).Error; err != nil {
		return 0, fmt.Errorf("update room summary: %w", err)
	}
	return messages, nil
}

func (s *Seeder) createFeed(tx *gorm.DB, users []models.User, posts int, sum *Summary) error {
	if len(users) == 0 {
		return nil
	}
	for i := 0; i < posts; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		authorID := author.ID
		post := models.Post{
			AuthorID:  &authorID,
			Content:   s.faker.Paragraph(1, s.faker.Number(1, 3), 12, "\n"),
			ImageKeys: models.StringList{},
			ImageURLs: models.StringList{},
			CreatedAt: s.pastTime(30),
		}
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		sum.Posts++

		likes, dislikes := 0, 0
		for _, idx := range s.faker.Rand.Perm(len(users))[:s.faker.Number(0, len(users)/2)] {
			kind := models.ReactionLike
			if s.faker.Number(1, 5) == 1 {
				kind = models.ReactionDislike
			}
			r := models.PostReaction{PostID: post.ID, UserID: users[idx].ID, Kind: kind, CreatedAt: post.CreatedAt}
			if err := tx.Create(&r).Error; err != nil {
				return fmt.Errorf("create reaction: %w", err)
			}
			if kind == models.ReactionLike {
				likes++
			} else {
				dislikes++
			}
			sum.Reactions++
		}

		comments := s.faker.Number(0, 4)
		for c := 0; c < comments; c++ {
			commenterID := users[s.faker.Number(0, len(users)-1)].ID
			at := post.CreatedAt.Add(time.Duration(c+1) * time.Hour)
			if at.After(s.now()) {
				at = s.now()
			}
			comment := models.Comment{
				PostID:    post.ID,
				AuthorID:  &commenterID,
				Body:      s.faker.Sentence(s.faker.Number(3, 15)),
				CreatedAt: at,
			}
			if err := tx.Create(&comment).Error; err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			sum.Comments++
		}

		if err := tx.Model(&post).Updates(map[string]interface{}{
			"like_count":    likes,
			"dislike_count": dislikes,
			"comment_count": comments,
		}).Error; err != nil {
			return fmt.Errorf("update post counters: %w", err)
		}
	}
	return nil
}
