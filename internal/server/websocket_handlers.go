package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hongdating/internal/inbox"
	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const localRoomID = "roomID"

// upgradeOnly rejects plain HTTP requests on websocket routes.
func (s *Server) upgradeOnly(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired, errors.New("websocket upgrade required"))
	}
	return c.Next()
}

// roomSocketGuard checks membership before the upgrade so a stranger gets a
// normal 403/404 instead of a socket that closes immediately.
func (s *Server) roomSocketGuard(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.chatService.Room(c.UserContext(), id, currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	c.Locals(localRoomID, id)
	return c.Next()
}

func socketUserID(conn *websocket.Conn) (uint, bool) {
	uid, ok := conn.Locals(localUserID).(uint)
	return uid, ok && uid != 0
}

// InboxWebsocketHandler streams inbox_snapshot followed by incremental
// room and request updates for the signed-in user.
func (s *Server) InboxWebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := socketUserID(conn)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("inbox socket rejected",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"error":%q}`, err.Error())))
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithCancel(s.socketContext())
		defer cancel()

		// Subscribe first so nothing published during the load is lost.
		sub := s.hub.Subscribe(userID)
		defer sub.Close()

		rec := inbox.NewReconciler(userID, s.inboxService, client)
		go client.WritePump()

		if err := rec.Load(ctx); err != nil {
			middleware.Logger.Error("inbox snapshot failed",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			s.sendSocketError(client, err)
			client.Close()
			s.hub.UnregisterClient(client)
			return
		}
		go func() {
			_ = rec.Run(ctx, sub.C)
		}()

		client.ReadPump()
	})
}

type roomFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	IsTyping bool   `json:"is_typing"`
}

// RoomWebsocketHandler carries live messages, typing and read receipts for
// one room. Inbound frames are {"type":"message","content":...},
// {"type":"typing","is_typing":true} and {"type":"read"}.
func (s *Server) RoomWebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := socketUserID(conn)
		roomID, _ := conn.Locals(localRoomID).(uint)
		if !ok || roomID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.roomHub.Join(roomID, userID, conn)
		if err != nil {
			middleware.Logger.Warn("room socket rejected",
				slog.Uint64("user_id", uint64(userID)),
				slog.Uint64("room_id", uint64(roomID)),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"error":%q}`, err.Error())))
			_ = conn.Close()
			return
		}

		ctx := s.socketContext()
		client.IncomingHandler = func(c *notifications.Client, data []byte) {
			s.handleRoomFrame(ctx, c, data)
		}

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) handleRoomFrame(ctx context.Context, c *notifications.Client, data []byte) {
	var frame roomFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendSocketError(c, models.NewValidationError("Invalid frame"))
		return
	}

	switch frame.Type {
	case notifications.EventMessage:
		allowed, err := middleware.CheckRateLimit(ctx, s.redis, "send_message", fmt.Sprintf("user:%d", c.UserID), 30, time.Minute)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "socket rate limit check failed", slog.String("error", err.Error()))
		}
		if !allowed && err == nil {
			s.sendSocketError(c, models.NewRateLimitedError("Too many messages"))
			return
		}
		if _, err := s.chatService.SendMessage(ctx, c.RoomID, c.UserID, frame.Content); err != nil {
			s.sendSocketError(c, err)
		}
	case notifications.EventTyping:
		s.chatService.Typing(ctx, c.RoomID, c.UserID, frame.IsTyping)
	case notifications.EventRead:
		if _, err := s.chatService.MarkRead(ctx, c.RoomID, c.UserID); err != nil {
			s.sendSocketError(c, err)
		}
	default:
		s.sendSocketError(c, models.NewValidationError("Unknown frame type"))
	}
}

// sendSocketError pushes an error frame shaped like the HTTP error body.
func (s *Server) sendSocketError(c *notifications.Client, err error) {
	body := models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.Code = appErr.Code
	} else {
		middleware.Logger.Error("socket operation failed",
			slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
	}
	ev, encErr := notifications.NewEvent(notifications.EventError, body)
	if encErr != nil {
		return
	}
	ev.RoomID = c.RoomID
	_ = c.SendEvent(ev)
}

// socketContext outlives the upgrade request and ends on shutdown.
func (s *Server) socketContext() context.Context {
	if s.shutdownCtx != nil {
		return s.shutdownCtx
	}
	return context.Background()
}
