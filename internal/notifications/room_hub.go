package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"hongdating/internal/middleware"
	"hongdating/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// RoomHub manages sockets joined to chat rooms. Unlike Hub it is keyed by
// room; the same user may be in several rooms on several devices.
type RoomHub struct {
	mu       sync.RWMutex
	rooms    map[uint]map[*Client]struct{}
	total    int
	presence *Presence
	log      *observability.WSLogger
}

// NewRoomHub creates a RoomHub that reports connections to presence.
func NewRoomHub(presence *Presence) *RoomHub {
	if presence == nil {
		presence = NewPresence(nil)
	}
	return &RoomHub{
		rooms:    make(map[uint]map[*Client]struct{}),
		presence: presence,
		log:      observability.NewWSLogger("room", middleware.Logger),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *RoomHub) Name() string { return "room" }

// Join registers a socket for userID in roomID.
func (h *RoomHub) Join(roomID, userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.total >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}
	m, ok := h.rooms[roomID]
	if !ok {
		m = make(map[*Client]struct{})
		h.rooms[roomID] = m
	}
	perUser := 0
	for c := range m {
		if c.UserID == userID {
			perUser++
		}
	}
	if perUser >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}
	client := NewClient(h, conn, userID)
	client.RoomID = roomID
	client.OnActivity = func(uid uint) { h.presence.Touch(context.Background(), uid) }
	m[client] = struct{}{}
	h.total++
	h.mu.Unlock()

	h.presence.Register(context.Background(), userID)
	h.log.LogConnect(context.Background(), userID, fmt.Sprintf("room:%d", roomID))
	return client, nil
}

// UnregisterClient removes client from its room.
func (h *RoomHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.rooms[client.RoomID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.total--
			removed = true
		}
		if len(m) == 0 {
			delete(h.rooms, client.RoomID)
		}
	}
	h.mu.Unlock()

	if removed {
		h.presence.Unregister(context.Background(), client.UserID)
		h.log.LogDisconnect(context.Background(), client.UserID, fmt.Sprintf("room:%d", client.RoomID), "closed")
	}
}

// Broadcast queues payload on every socket in roomID.
func (h *RoomHub) Broadcast(roomID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.TrySend(payload)
	}
}

// IsViewing reports whether userID has roomID open on this instance.
func (h *RoomHub) IsViewing(roomID, userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// Members returns the distinct users connected to roomID.
func (h *RoomHub) Members(roomID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[uint]struct{})
	out := make([]uint, 0, 2)
	for c := range h.rooms[roomID] {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, c.UserID)
	}
	return out
}

// Evict closes every socket in roomID, used once the room is gone.
func (h *RoomHub) Evict(roomID uint) {
	h.mu.Lock()
	m := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.total -= len(m)
	h.mu.Unlock()

	for c := range m {
		h.presence.Unregister(context.Background(), c.UserID)
		h.log.LogDisconnect(context.Background(), c.UserID, fmt.Sprintf("room:%d", roomID), "room_closed")
		c.Close()
	}
}

// StartWiring subscribes to room channels. A room_closed event also evicts
// the room's sockets after it is delivered.
func (h *RoomHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartRoomSubscriber(ctx, func(channel, payload string) {
		var roomID uint
		if _, err := fmt.Sscanf(channel, "chat:room:%d", &roomID); err != nil {
			middleware.Logger.Warn("invalid room channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(roomID, []byte(payload))
		if ev, err := DecodeEvent([]byte(payload)); err == nil && ev.Type == EventRoomClosed {
			h.Evict(roomID)
		}
	})
}

// Shutdown gracefully closes all room sockets.
func (h *RoomHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	ids := make([]uint, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.mu.RLock()
		for c := range h.rooms[id] {
			if c.Conn != nil {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"))
			}
		}
		h.mu.RUnlock()
		h.Evict(id)
	}
	return nil
}
