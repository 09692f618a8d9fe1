// Package notifications provides real-time event delivery over websockets
// with Redis pub/sub fan-out between instances.
package notifications

import (
	"encoding/json"
	"time"

	"hongdating/internal/models"
)

// Inbox stream event types.
const (
	EventInboxSnapshot   = "inbox_snapshot"
	EventRoomUpdated     = "room_updated"
	EventUnreadChanged   = "unread_changed"
	EventRequestReceived = "request_received"
	EventRequestAccepted = "request_accepted"
	EventRequestRejected = "request_rejected"
	EventRoomClosed      = "room_closed"
)

// Room stream event types.
const (
	EventMessage            = "message"
	EventTyping             = "typing"
	EventRead               = "read"
	EventIcebreakerRevealed = "icebreaker_revealed"
	EventError              = "error"
)

// Event is the envelope for every frame the server pushes.
type Event struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id,omitempty"`
	UserID uint   `json:"user_id,omitempty"`
	// Version orders updates to the same item; it is the item's updated_at
	// in unix nanoseconds.
	Version int64           `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event of type typ.
func NewEvent(typ string, payload interface{}) (Event, error) {
	ev := Event{Type: typ}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = raw
	return ev, nil
}

// Encode returns the wire form of e.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses a frame produced by Encode.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// VersionOf converts an updated_at timestamp into an event version.
func VersionOf(t time.Time) int64 {
	return t.UnixNano()
}

// RequestAcceptedPayload tells both sides of a request that it became a room.
type RequestAcceptedPayload struct {
	Request models.RequestView `json:"request"`
	Room    models.RoomView    `json:"room"`
}

// RequestRejectedPayload identifies the rejected request.
type RequestRejectedPayload struct {
	RequestID uint `json:"request_id"`
}

// RoomClosedPayload identifies the closed room.
type RoomClosedPayload struct {
	RoomID uint `json:"room_id"`
}

// UnreadChangedPayload carries a participant's new unread count for a room.
type UnreadChangedPayload struct {
	RoomID      uint `json:"room_id"`
	UnreadCount int  `json:"unread_count"`
}

// ReadPayload reports that UserID has read the room up to now.
type ReadPayload struct {
	UserID uint  `json:"user_id"`
	Count  int64 `json:"count"`
}

// TypingPayload is relayed between the two participants of a room.
type TypingPayload struct {
	UserID   uint `json:"user_id"`
	IsTyping bool `json:"is_typing"`
}

// IcebreakerRevealedPayload is broadcast once both participants answered.
type IcebreakerRevealedPayload struct {
	RoomID uint `json:"room_id"`
}
