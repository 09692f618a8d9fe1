package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hongdating/internal/models"
	"hongdating/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	t := base.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func room(id uint, lastMin, unread int) models.RoomView {
	return models.RoomView{
		ID:            id,
		PartnerID:     id + 100,
		LastMessage:   "hi",
		LastMessageAt: at(lastMin),
		UnreadCount:   unread,
		CreatedAt:     base,
		UpdatedAt:     *at(lastMin),
	}
}

func event(t *testing.T, typ string, payload any, version int64) notifications.Event {
	t.Helper()
	ev, err := notifications.NewEvent(typ, payload)
	require.NoError(t, err)
	ev.Version = version
	return ev
}

func TestState_SnapshotOrdering(t *testing.T) {
	s := NewState()
	s.Load(
		[]models.RoomView{room(1, 5, 1), room(2, 10, 0), room(3, 5, 2)},
		[]models.RequestView{
			{ID: 7, Status: models.RequestStatusPending, CreatedAt: base},
			{ID: 8, Status: models.RequestStatusPending, CreatedAt: base.Add(time.Minute)},
		},
	)

	snap := s.Snapshot()
	ids := make([]uint, 0, len(snap.Rooms))
	for _, r := range snap.Rooms {
		ids = append(ids, r.ID)
	}
	// Same timestamp: higher id first.
	assert.Equal(t, []uint{2, 3, 1}, ids)
	assert.Equal(t, 3, snap.TotalUnread)
	assert.Equal(t, 2, snap.PendingCount)
	assert.Equal(t, uint(8), snap.PendingRequests[0].ID)
}

func TestState_ApplyIsIdempotentAndDropsStale(t *testing.T) {
	s := NewState()
	s.Load([]models.RoomView{room(1, 0, 0)}, nil)
	v0 := s.Snapshot().Version

	newer := room(1, 3, 1)
	newer.LastMessage = "newer"
	ev := event(t, notifications.EventRoomUpdated, newer, 0)

	changed, err := s.Apply(ev)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Apply(ev)
	require.NoError(t, err)
	assert.False(t, changed, "duplicate event")

	older := room(1, 2, 9)
	older.LastMessage = "older"
	changed, err = s.Apply(event(t, notifications.EventRoomUpdated, older, 0))
	require.NoError(t, err)
	assert.False(t, changed, "stale event")

	snap := s.Snapshot()
	assert.Equal(t, "newer", snap.Rooms[0].LastMessage)
	assert.Equal(t, 1, snap.TotalUnread)
	assert.Equal(t, v0+1, snap.Version)
}

func TestState_UnreadChanged(t *testing.T) {
	s := NewState()
	s.Load([]models.RoomView{room(1, 0, 4)}, nil)

	readAt := notifications.VersionOf(base.Add(time.Hour))
	changed, err := s.Apply(event(t, notifications.EventUnreadChanged,
		notifications.UnreadChangedPayload{RoomID: 1, UnreadCount: 0}, readAt))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, s.Snapshot().TotalUnread)

	// A message event that happened before the read must not bring the
	// unread count back.
	late := room(1, 30, 5)
	changed, err = s.Apply(event(t, notifications.EventRoomUpdated, late, 0))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.Apply(event(t, notifications.EventUnreadChanged,
		notifications.UnreadChangedPayload{RoomID: 99, UnreadCount: 1}, readAt+1))
	require.NoError(t, err)
	assert.False(t, changed, "unknown room")
}

func TestState_RequestLifecycle(t *testing.T) {
	s := NewState()
	s.Load(nil, nil)

	req := models.RequestView{ID: 5, Status: models.RequestStatusPending, CreatedAt: base}
	changed, err := s.Apply(event(t, notifications.EventRequestReceived, req, 0))
	require.NoError(t, err)
	assert.True(t, changed)
	changed, _ = s.Apply(event(t, notifications.EventRequestReceived, req, 0))
	assert.False(t, changed)
	assert.Equal(t, 1, s.Snapshot().PendingCount)

	accepted := req
	accepted.Status = models.RequestStatusAccepted
	changed, err = s.Apply(event(t, notifications.EventRequestAccepted,
		notifications.RequestAcceptedPayload{Request: accepted, Room: room(3, 1, 1)}, 0))
	require.NoError(t, err)
	assert.True(t, changed)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.PendingCount)
	require.Len(t, snap.Rooms, 1)
	assert.Equal(t, uint(3), snap.Rooms[0].ID)

	other := models.RequestView{ID: 6, Status: models.RequestStatusPending, CreatedAt: base}
	_, _ = s.Apply(event(t, notifications.EventRequestReceived, other, 0))
	changed, err = s.Apply(event(t, notifications.EventRequestRejected,
		notifications.RequestRejectedPayload{RequestID: 6}, 0))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, s.Snapshot().PendingCount)
}

func TestState_ClosedRoomStaysClosed(t *testing.T) {
	s := NewState()
	s.Load([]models.RoomView{room(1, 0, 2)}, nil)

	changed, err := s.Apply(event(t, notifications.EventRoomClosed, notifications.RoomClosedPayload{RoomID: 1}, 0))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Apply(event(t, notifications.EventRoomUpdated, room(1, 60, 1), 0))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, s.Snapshot().Rooms)
}

func TestState_BadPayloadAndUnknownType(t *testing.T) {
	s := NewState()
	_, err := s.Apply(notifications.Event{Type: notifications.EventRoomUpdated, Payload: []byte(`"x"`)})
	assert.Error(t, err)
	_, err = s.Apply(notifications.Event{Type: notifications.EventRoomClosed})
	assert.Error(t, err)

	changed, err := s.Apply(notifications.Event{Type: notifications.EventTyping})
	assert.NoError(t, err)
	assert.False(t, changed)
}

type loaderFunc func(ctx context.Context, userID uint) (*Snapshot, error)

func (f loaderFunc) LoadInbox(ctx context.Context, userID uint) (*Snapshot, error) {
	return f(ctx, userID)
}

type recordingSink struct {
	mu     sync.Mutex
	frames []notifications.Event
}

func (s *recordingSink) TrySend(data []byte) bool {
	ev, err := notifications.DecodeEvent(data)
	if err != nil {
		return false
	}
	s.mu.Lock()
	s.frames = append(s.frames, ev)
	s.mu.Unlock()
	return true
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, f.Type)
	}
	return out
}

func TestReconciler_SnapshotThenForwardsChanges(t *testing.T) {
	sink := &recordingSink{}
	loader := loaderFunc(func(_ context.Context, userID uint) (*Snapshot, error) {
		assert.Equal(t, uint(4), userID)
		return &Snapshot{Rooms: []models.RoomView{room(1, 0, 0)}}, nil
	})
	rec := NewReconciler(4, loader, sink)

	events := make(chan []byte, 4)
	require.NoError(t, rec.Load(context.Background()))

	// The load already saw this update; it must not be forwarded again.
	seen, _ := event(t, notifications.EventRoomUpdated, room(1, 0, 0), 0).Encode()
	fresh, _ := event(t, notifications.EventRoomUpdated, room(1, 5, 1), 0).Encode()
	events <- seen
	events <- []byte("not json")
	events <- fresh
	close(events)

	require.NoError(t, rec.Run(context.Background(), events))
	assert.Equal(t, []string{notifications.EventInboxSnapshot, notifications.EventRoomUpdated}, sink.types())
	assert.Equal(t, 1, rec.State().Snapshot().TotalUnread)
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	rec := NewReconciler(1, loaderFunc(func(context.Context, uint) (*Snapshot, error) {
		return &Snapshot{}, nil
	}), &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx, make(chan []byte)) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestReconciler_LoadError(t *testing.T) {
	boom := errors.New("db down")
	sink := &recordingSink{}
	rec := NewReconciler(1, loaderFunc(func(context.Context, uint) (*Snapshot, error) {
		return nil, boom
	}), sink)
	assert.ErrorIs(t, rec.Load(context.Background()), boom)
	assert.Empty(t, sink.types())
}
