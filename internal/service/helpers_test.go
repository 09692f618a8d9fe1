package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hongdating/internal/config"
	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/push"
	"hongdating/internal/repository"
	"hongdating/internal/storage"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type publishedEvent struct {
	target uint
	event  notifications.Event
}

// recordingPublisher captures events instead of sending them.
type recordingPublisher struct {
	mu    sync.Mutex
	users []publishedEvent
	rooms []publishedEvent
}

func (p *recordingPublisher) PublishUserEvent(_ context.Context, userID uint, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, publishedEvent{target: userID, event: ev})
	return nil
}

func (p *recordingPublisher) PublishRoomEvent(_ context.Context, roomID uint, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, publishedEvent{target: roomID, event: ev})
	return nil
}

func (p *recordingPublisher) userEvents(userID uint, typ string) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notifications.Event
	for _, e := range p.users {
		if e.target == userID && e.event.Type == typ {
			out = append(out, e.event)
		}
	}
	return out
}

func (p *recordingPublisher) roomEvents(roomID uint, typ string) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notifications.Event
	for _, e := range p.rooms {
		if e.target == roomID && e.event.Type == typ {
			out = append(out, e.event)
		}
	}
	return out
}

type sentPush struct {
	userID uint
	n      push.Notification
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []sentPush
}

func (p *recordingPusher) Notify(userID uint, n push.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentPush{userID: userID, n: n})
}

func (p *recordingPusher) to(userID uint) []push.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []push.Notification
	for _, s := range p.sent {
		if s.userID == userID {
			out = append(out, s.n)
		}
	}
	return out
}

type presenceStub map[uint]bool

func (p presenceStub) IsOnline(userID uint) bool { return p[userID] }

// fixture wires every service against one sqlite database.
type fixture struct {
	db       *gorm.DB
	pub      *recordingPublisher
	pusher   *recordingPusher
	online   presenceStub
	store    *storage.LocalStore
	media    *MediaService
	users    *UserService
	requests *RequestService
	chat     *ChatService
	posts    *PostService
	mod      *ModerationService
	ice      *IcebreakerService
	inbox    *InboxService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "http://cdn.test/uploads")
	require.NoError(t, err)

	f := &fixture{
		db:     db,
		pub:    &recordingPublisher{},
		pusher: &recordingPusher{},
		online: presenceStub{},
		store:  store,
	}
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	chatRepo := repository.NewChatRepository(db)
	postRepo := repository.NewPostRepository(db)

	f.media = NewMediaService(store, &config.Config{ImageMaxUploadSizeMB: 10})
	f.users = NewUserService(userRepo, f.media, f.pub)
	f.requests = NewRequestService(requestRepo, userRepo, f.pub, f.pusher, 3, time.UTC)
	f.chat = NewChatService(chatRepo, f.pub, f.pusher, f.online)
	f.posts = NewPostService(postRepo, userRepo, f.media)
	f.mod = NewModerationService(repository.NewModerationRepository(db), userRepo, postRepo, chatRepo, f.media)
	f.ice = NewIcebreakerService(repository.NewIcebreakerRepository(db), f.chat, f.pub, nil)
	f.inbox = NewInboxService(chatRepo, requestRepo)
	return f
}

// openRoom sends and accepts a request between a and b.
func (f *fixture) openRoom(t *testing.T, a, b *models.User) models.RoomView {
	t.Helper()
	ctx := context.Background()
	req, err := f.requests.Send(ctx, SendRequestInput{SenderID: a.ID, RecipientID: b.ID, Message: "hi there"})
	require.NoError(t, err)
	res, err := f.requests.Accept(ctx, req.ID, b.ID)
	require.NoError(t, err)
	return res.Room
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, code), "want %s, got %v", code, err)
}

func ptr[T any](v T) *T { return &v }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
