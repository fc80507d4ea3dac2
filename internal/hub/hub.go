package hub

import (
	"sort"
	"strings"
	"sync"
)

// Room keys are user ids verbatim for direct rooms; group rooms carry a
// prefix so the two kinds cannot collide in the same index.
const groupPrefix = "group:"

func GroupRoom(groupID string) string { return groupPrefix + groupID }

// Hub is the process-wide registry of connection <-> identity <-> room
// associations. Rebuilt from zero on restart, no durability.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	rooms    map[string]map[*Session]struct{}
	joined   map[*Session]map[string]struct{}
}

func New() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		rooms:    make(map[string]map[*Session]struct{}),
		joined:   make(map[*Session]map[string]struct{}),
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
}

// BindUser associates a user id with a session. Rebinding replaces the prior
// association; an empty id is a silent no-op.
func (h *Hub) BindUser(s *Session, userID string) {
	if userID == "" {
		return
	}
	s.setUserID(userID)
}

func (h *Hub) Unbind(s *Session) {
	s.setUserID("")
}

// Join adds the session to a room, creating it if absent. Repeated joins for
// the same pair are a union, not an error.
func (h *Hub) Join(room string, s *Session) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
	if _, ok := h.joined[s]; !ok {
		h.joined[s] = make(map[string]struct{})
	}
	h.joined[s][room] = struct{}{}
}

// Leave removes the session from a room and drops the room entirely once
// empty, so dead rooms do not accumulate.
func (h *Hub) Leave(room string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, s)
}

func (h *Hub) leaveLocked(room string, s *Session) {
	if set, ok := h.rooms[room]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	if set, ok := h.joined[s]; ok {
		delete(set, room)
		if len(set) == 0 {
			delete(h.joined, s)
		}
	}
}

// Unregister removes the session and every membership it still holds. It
// reports false when the session was already gone, so disconnect teardown
// runs exactly once even when the reader and a server shutdown race.
func (h *Hub) Unregister(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return false
	}
	delete(h.sessions, s)
	for room := range h.joined[s] {
		h.leaveLocked(room, s)
	}
	delete(h.joined, s)
	return true
}

// Members returns the sessions currently subscribed to a room. Unknown rooms
// yield an empty result, not an error.
func (h *Hub) Members(room string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set, ok := h.rooms[room]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Rooms returns the rooms a session currently belongs to.
func (h *Hub) Rooms(s *Session) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.joined[s]))
	for room := range h.joined[s] {
		out = append(out, room)
	}
	return out
}

// OnlineUserIDs derives the distinct online users: every non-group room key
// with at least one member. Sorted for stable payloads.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms))
	for room, set := range h.rooms {
		if strings.HasPrefix(room, groupPrefix) || len(set) == 0 {
			continue
		}
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Broadcast delivers a frame to every member of a room. Empty room: no-op.
func (h *Hub) Broadcast(room string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[room] {
		s.Deliver(frame)
	}
}

// BroadcastAll delivers a frame to every connected session.
func (h *Hub) BroadcastAll(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		s.Deliver(frame)
	}
}

// NumSessions reports the number of live connections.
func (h *Hub) NumSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
