package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"hongdating/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// sendBuffer is the per-client outbound queue. A full queue drops frames.
	sendBuffer = 32
)

var errClientClosed = errors.New("client closed")

// WSHub is implemented by the hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is a middleman between one websocket connection and its hub.
type Client struct {
	Hub  WSHub
	Conn *websocket.Conn

	// Send is the buffered outbound queue drained by WritePump.
	Send chan []byte

	UserID uint
	RoomID uint

	// IncomingHandler receives every inbound frame.
	IncomingHandler func(*Client, []byte)
	// OnActivity runs on every pong and inbound frame.
	OnActivity func(userID uint)

	log       *observability.WSLogger
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient creates a new Client instance
func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		log:    observability.NewWSLogger(hub.Name(), nil),
	}
}

// Done is closed once the client stops accepting frames.
func (c *Client) Done() <-chan struct{} { return c.done }

// ReadPump pumps messages from the websocket connection to the handler and
// unregisters the client when the connection ends.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Close()
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.LogError(context.Background(), c.UserID, c.Hub.Name(), err, "read")
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump pumps messages from the Send queue to the websocket connection
// and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. It reports false and counts the
// drop when the client is closed or its buffer is full.
func (c *Client) TrySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.log.LogDrop(c.UserID, "closed")
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		c.log.LogDrop(c.UserID, "buffer_full")
		return false
	}
}

// SendEvent encodes ev and queues it.
func (c *Client) SendEvent(ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	if !c.TrySend(data) {
		return errClientClosed
	}
	return nil
}

// Close stops the outbound queue; WritePump then sends a close frame.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Client) touch() {
	if c.OnActivity != nil {
		c.OnActivity(c.UserID)
	}
}
