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

const (
	// Max connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 10000
)

// Subscription is one consumer of a user's inbox events.
type Subscription struct {
	UserID uint
	C      chan []byte

	hub    *Hub
	mu     sync.Mutex
	closed bool
}

func (s *Subscription) offer(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.C <- data:
	default:
		s.hub.log.LogDrop(s.UserID, "subscription_full")
	}
}

// Close detaches the subscription from its hub.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub maps a user to their open inbox sockets and event subscriptions.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	subs       map[uint]map[*Subscription]struct{}
	totalConns int
	presence   *Presence
	log        *observability.WSLogger
}

// NewHub creates a Hub that reports connections to presence.
func NewHub(presence *Presence) *Hub {
	if presence == nil {
		presence = NewPresence(nil)
	}
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		subs:     make(map[uint]map[*Subscription]struct{}),
		presence: presence,
		log:      observability.NewWSLogger("inbox", middleware.Logger),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "inbox" }

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}
	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid uint) { h.presence.Touch(context.Background(), uid) }
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	h.presence.Register(context.Background(), userID)
	h.log.LogConnect(context.Background(), userID, "inbox")
	return client, nil
}

// UnregisterClient removes client; it is safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		h.presence.Unregister(context.Background(), client.UserID)
		h.log.LogDisconnect(context.Background(), client.UserID, "inbox", "closed")
	}
}

// Subscribe opens an event feed for userID.
func (h *Hub) Subscribe(userID uint) *Subscription {
	sub := &Subscription{UserID: userID, C: make(chan []byte, sendBuffer), hub: h}
	h.mu.Lock()
	m, ok := h.subs[userID]
	if !ok {
		m = make(map[*Subscription]struct{})
		h.subs[userID] = m
	}
	m[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if m, ok := h.subs[sub.UserID]; ok {
		delete(m, sub)
		if len(m) == 0 {
			delete(h.subs, sub.UserID)
		}
	}
	h.mu.Unlock()

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.C)
	}
	sub.mu.Unlock()
}

// Broadcast hands payload to every subscription of userID.
func (h *Hub) Broadcast(userID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[userID] {
		sub.offer(payload)
	}
}

// IsOnline reports whether a user has a socket open on any instance.
func (h *Hub) IsOnline(userID uint) bool {
	return h.presence.IsOnline(context.Background(), userID)
}

// ConnectionCount returns the number of sockets on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring subscribes to user channels and forwards each message to the
// matching user's subscriptions.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartUserSubscriber(ctx, func(channel, payload string) {
		var userID uint
		if _, err := fmt.Sscanf(channel, "notifications:user:%d", &userID); err != nil {
			middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(userID, []byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections and subscriptions.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	clients := make([]*Client, 0, h.totalConns)
	for _, m := range h.conns {
		for c := range m {
			clients = append(clients, c)
		}
	}
	subs := make([]*Subscription, 0)
	for _, m := range h.subs {
		for s := range m {
			subs = append(subs, s)
		}
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	for _, c := range clients {
		closeClient(c)
		h.UnregisterClient(c)
	}
	return nil
}

func closeClient(c *Client) {
	if c.Conn != nil {
		_ = c.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"))
	}
	c.Close()
}
