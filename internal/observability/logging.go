package observability

import (
	"context"
	"log/slog"
)

// WSLogger emits structured websocket lifecycle records for one hub.
type WSLogger struct {
	hubName string
	logger  *slog.Logger
}

// NewWSLogger creates a WSLogger for hub. A nil logger uses slog.Default.
func NewWSLogger(hub string, logger *slog.Logger) *WSLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSLogger{hubName: hub, logger: logger}
}

func (l *WSLogger) LogConnect(ctx context.Context, userID uint, scope string) {
	WebSocketConnections.WithLabelValues(l.hubName).Inc()
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("scope", scope),
	)
}

func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, scope, reason string) {
	WebSocketConnections.WithLabelValues(l.hubName).Dec()
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("scope", scope),
		slog.String("reason", reason),
	)
}

// LogError logs a failure while handling eventType.
func (l *WSLogger) LogError(ctx context.Context, userID uint, scope string, err error, eventType string) {
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("scope", scope),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogDrop records a frame dropped for a slow client.
func (l *WSLogger) LogDrop(userID uint, reason string) {
	WebSocketDropped.WithLabelValues(l.hubName, reason).Inc()
	l.logger.Warn("websocket message dropped",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("reason", reason),
	)
}
