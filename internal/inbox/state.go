// Package inbox merges a user's rooms, unread counts and pending requests
// into one view that stays consistent as realtime events arrive.
package inbox

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"hongdating/internal/models"
	"hongdating/internal/notifications"
)

// Snapshot is the inbox as rendered to a client.
type Snapshot struct {
	Version         int64                `json:"version"`
	Rooms           []models.RoomView    `json:"rooms"`
	TotalUnread     int                  `json:"total_unread"`
	PendingCount    int                  `json:"pending_count"`
	PendingRequests []models.RequestView `json:"pending_requests"`
}

// State is one user's inbox. It is safe for concurrent use.
type State struct {
	mu sync.Mutex

	rooms        map[uint]models.RoomView
	roomVersions map[uint]int64
	closed       map[uint]struct{}
	requests     map[uint]models.RequestView

	// version increases by one for every change that is applied.
	version int64
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		rooms:        make(map[uint]models.RoomView),
		roomVersions: make(map[uint]int64),
		closed:       make(map[uint]struct{}),
		requests:     make(map[uint]models.RequestView),
	}
}

// Load replaces the state with rows read from storage.
func (s *State) Load(rooms []models.RoomView, pending []models.RequestView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms = make(map[uint]models.RoomView, len(rooms))
	s.roomVersions = make(map[uint]int64, len(rooms))
	for _, r := range rooms {
		s.rooms[r.ID] = r
		s.roomVersions[r.ID] = notifications.VersionOf(r.UpdatedAt)
	}
	s.requests = make(map[uint]models.RequestView, len(pending))
	for _, req := range pending {
		s.requests[req.ID] = req
	}
	s.version++
}

// Apply folds ev into the state. It reports whether anything changed;
// duplicate and stale events are ignored.
func (s *State) Apply(ev notifications.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed bool
	var err error
	switch ev.Type {
	case notifications.EventRoomUpdated:
		var room models.RoomView
		if err = decode(ev, &room); err == nil {
			changed = s.upsertRoom(room, versionOr(ev.Version, room))
		}
	case notifications.EventUnreadChanged:
		var p notifications.UnreadChangedPayload
		if err = decode(ev, &p); err == nil {
			changed = s.setUnread(p, ev.Version)
		}
	case notifications.EventRequestReceived:
		var req models.RequestView
		if err = decode(ev, &req); err == nil {
			changed = s.addRequest(req)
		}
	case notifications.EventRequestAccepted:
		var p notifications.RequestAcceptedPayload
		if err = decode(ev, &p); err == nil {
			_, had := s.requests[p.Request.ID]
			delete(s.requests, p.Request.ID)
			changed = s.upsertRoom(p.Room, versionOr(ev.Version, p.Room)) || had
		}
	case notifications.EventRequestRejected:
		var p notifications.RequestRejectedPayload
		if err = decode(ev, &p); err == nil {
			_, changed = s.requests[p.RequestID]
			delete(s.requests, p.RequestID)
		}
	case notifications.EventRoomClosed:
		var p notifications.RoomClosedPayload
		if err = decode(ev, &p); err == nil {
			id := p.RoomID
			if id == 0 {
				id = ev.RoomID
			}
			_, changed = s.rooms[id]
			delete(s.rooms, id)
			delete(s.roomVersions, id)
			s.closed[id] = struct{}{}
		}
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inbox: decode %s: %w", ev.Type, err)
	}
	if changed {
		s.version++
	}
	return changed, nil
}

func decode(ev notifications.Event, dest any) error {
	if len(ev.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(ev.Payload, dest)
}

func versionOr(v int64, room models.RoomView) int64 {
	if v != 0 {
		return v
	}
	return notifications.VersionOf(room.UpdatedAt)
}

// Room ids are never reused, so a closed room stays closed.
func (s *State) upsertRoom(room models.RoomView, version int64) bool {
	if room.ID == 0 {
		return false
	}
	if _, gone := s.closed[room.ID]; gone {
		return false
	}
	if cur, ok := s.roomVersions[room.ID]; ok && cur >= version {
		return false
	}
	s.rooms[room.ID] = room
	s.roomVersions[room.ID] = version
	return true
}

func (s *State) setUnread(p notifications.UnreadChangedPayload, version int64) bool {
	room, ok := s.rooms[p.RoomID]
	if !ok {
		return false
	}
	if version != 0 {
		if s.roomVersions[p.RoomID] >= version {
			return false
		}
		s.roomVersions[p.RoomID] = version
	}
	if room.UnreadCount == p.UnreadCount {
		return false
	}
	room.UnreadCount = p.UnreadCount
	s.rooms[p.RoomID] = room
	return true
}

func (s *State) addRequest(req models.RequestView) bool {
	if req.ID == 0 || req.Status != models.RequestStatusPending {
		return false
	}
	if _, ok := s.requests[req.ID]; ok {
		return false
	}
	s.requests[req.ID] = req
	return true
}

// Snapshot returns rooms newest activity first and pending requests newest
// first.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Version:         s.version,
		Rooms:           make([]models.RoomView, 0, len(s.rooms)),
		PendingRequests: make([]models.RequestView, 0, len(s.requests)),
	}
	for _, r := range s.rooms {
		snap.Rooms = append(snap.Rooms, r)
		snap.TotalUnread += r.UnreadCount
	}
	sort.Slice(snap.Rooms, func(i, j int) bool {
		ti, tj := activityAt(snap.Rooms[i]), activityAt(snap.Rooms[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return snap.Rooms[i].ID > snap.Rooms[j].ID
	})

	for _, req := range s.requests {
		snap.PendingRequests = append(snap.PendingRequests, req)
	}
	sort.Slice(snap.PendingRequests, func(i, j int) bool {
		a, b := snap.PendingRequests[i], snap.PendingRequests[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	snap.PendingCount = len(snap.PendingRequests)
	return snap
}

func activityAt(r models.RoomView) time.Time {
	if r.LastMessageAt != nil {
		return *r.LastMessageAt
	}
	return r.CreatedAt
}
