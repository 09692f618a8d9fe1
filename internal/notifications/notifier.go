package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"

	"hongdating/internal/middleware"
	"hongdating/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userPattern = "notifications:user:*"
	roomPattern = "chat:room:*"
)

// Handler receives a channel name and payload.
type Handler func(channel, payload string)

// Notifier publishes events into Redis channels. Without Redis, or when a
// publish fails, it delivers to this process's subscribers directly.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local map[string]Handler
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, local: make(map[string]Handler)}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}

// RoomChannel derives the Redis channel name for a chat room.
func RoomChannel(roomID uint) string {
	return "chat:room:" + strconv.FormatUint(uint64(roomID), 10)
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	return n.publish(ctx, userPattern, UserChannel(userID), payload)
}

// PublishRoom sends a payload to a room's channel.
func (n *Notifier) PublishRoom(ctx context.Context, roomID uint, payload string) error {
	return n.publish(ctx, roomPattern, RoomChannel(roomID), payload)
}

// PublishUserEvent encodes ev and publishes it to userID.
func (n *Notifier) PublishUserEvent(ctx context.Context, userID uint, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return n.PublishUser(ctx, userID, string(data))
}

// PublishRoomEvent encodes ev and publishes it to roomID.
func (n *Notifier) PublishRoomEvent(ctx context.Context, roomID uint, ev Event) error {
	ev.RoomID = roomID
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return n.PublishRoom(ctx, roomID, string(data))
}

func (n *Notifier) publish(ctx context.Context, pattern, channel, payload string) error {
	if n.rdb != nil {
		err := n.rdb.Publish(ctx, channel, payload).Err()
		if err == nil {
			return nil
		}
		observability.RedisErrors.WithLabelValues("publish").Inc()
		middleware.Logger.WarnContext(ctx, "redis publish failed, delivering locally",
			slog.String("channel", channel), slog.String("error", err.Error()))
	}
	n.mu.RLock()
	h := n.local[pattern]
	n.mu.RUnlock()
	if h != nil {
		safeCall(h, channel, payload)
	}
	return nil
}

// StartUserSubscriber delivers every user channel message to onMessage.
func (n *Notifier) StartUserSubscriber(ctx context.Context, onMessage Handler) error {
	return n.startPatternSubscriber(ctx, userPattern, onMessage)
}

// StartRoomSubscriber delivers every room channel message to onMessage.
func (n *Notifier) StartRoomSubscriber(ctx context.Context, onMessage Handler) error {
	return n.startPatternSubscriber(ctx, roomPattern, onMessage)
}

func (n *Notifier) startPatternSubscriber(ctx context.Context, pattern string, onMessage Handler) error {
	n.mu.Lock()
	n.local[pattern] = onMessage
	n.mu.Unlock()

	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, pattern)
	// Wait for the subscription confirmation so publishes right after start
	// are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("psubscribe %s: %w", pattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				safeCall(onMessage, msg.Channel, msg.Payload)
			}
		}
	}()
	return nil
}

func safeCall(h Handler, channel, payload string) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in notification handler",
				slog.String("channel", channel),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	h(channel, payload)
}
