// Package service implements the business rules behind the HTTP and
// websocket handlers.
package service

import (
	"context"
	"log/slog"
	"time"

	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/push"
)

// EventPublisher fans events out to inbox and room streams.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, userID uint, ev notifications.Event) error
	PublishRoomEvent(ctx context.Context, roomID uint, ev notifications.Event) error
}

// PushNotifier queues a push notification for a user's devices.
type PushNotifier interface {
	Notify(userID uint, n push.Notification)
}

// PresenceChecker reports whether a user currently has a live socket.
type PresenceChecker interface {
	IsOnline(userID uint) bool
}

var timeNow = func() time.Time { return time.Now().UTC() }

type nopPublisher struct{}

func (nopPublisher) PublishUserEvent(context.Context, uint, notifications.Event) error { return nil }
func (nopPublisher) PublishRoomEvent(context.Context, uint, notifications.Event) error { return nil }

type nopPusher struct{}

func (nopPusher) Notify(uint, push.Notification) {}

// publishUser encodes payload as typ and publishes it. Delivery failures are
// logged; the write that produced the event has already committed.
func publishUser(ctx context.Context, pub EventPublisher, userID uint, typ string, payload any, version int64) {
	ev, err := notifications.NewEvent(typ, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "encode event failed", slog.String("type", typ), slog.String("error", err.Error()))
		return
	}
	ev.Version = version
	if err := pub.PublishUserEvent(ctx, userID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "publish user event failed",
			slog.String("type", typ),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
	}
}

func publishRoom(ctx context.Context, pub EventPublisher, roomID uint, typ string, payload any) {
	ev, err := notifications.NewEvent(typ, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "encode event failed", slog.String("type", typ), slog.String("error", err.Error()))
		return
	}
	if err := pub.PublishRoomEvent(ctx, roomID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "publish room event failed",
			slog.String("type", typ),
			slog.Uint64("room_id", uint64(roomID)),
			slog.String("error", err.Error()))
	}
}

// publishRoomUpdated sends each participant their own projection of room.
func publishRoomUpdated(ctx context.Context, pub EventPublisher, room *models.ChatRoom) {
	version := notifications.VersionOf(room.UpdatedAt)
	for _, uid := range []uint{room.UserAID, room.UserBID} {
		publishUser(ctx, pub, uid, notifications.EventRoomUpdated, room.ViewFor(uid), version)
	}
}

// publishRoomClosed tells both participants and any open room socket.
func publishRoomClosed(ctx context.Context, pub EventPublisher, room *models.ChatRoom, at time.Time) {
	payload := notifications.RoomClosedPayload{RoomID: room.ID}
	for _, uid := range []uint{room.UserAID, room.UserBID} {
		publishUser(ctx, pub, uid, notifications.EventRoomClosed, payload, notifications.VersionOf(at))
	}
	publishRoom(ctx, pub, room.ID, notifications.EventRoomClosed, payload)
}

func validationErr(err error) error {
	return models.NewValidationError(err.Error())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
