// ABOUTME: In-memory room registry mapping participant pairs to live sessions
// ABOUTME: Rooms are transient; rebuilding from scratch on restart is correct and expected

package chat

import (
	"log/slog"
	"sync"
)

// Member is a room participant able to receive broadcast payloads.
// Deliver must not block; it returns false when the payload was dropped.
type Member interface {
	UserID() string
	Deliver(payload []byte) bool
}

// room holds the member set for one key. Its own lock keeps membership
// churn in one room from contending with fan-out in another.
type room struct {
	mu      sync.RWMutex
	members map[Member]struct{}
}

// Registry tracks which sessions are subscribed to which room key.
// It is an explicit process-scoped service passed into every session,
// not module-level state.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[RoomKey]*room
	logger *slog.Logger
}

// NewRegistry creates a registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		rooms:  make(map[RoomKey]*room),
		logger: logger.With("component", "registry"),
	}
}

// Join adds the member to the room's set, creating the room entry if absent.
// The registry lock is held across the insert: a concurrent Leave must not be
// able to reclaim the room between the map lookup and the member insert, or
// the joiner would land in a room struct no longer reachable from the map.
func (r *Registry) Join(key RoomKey, m Member) {
	r.mu.Lock()
	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{members: make(map[Member]struct{})}
		r.rooms[key] = rm
	}

	rm.mu.Lock()
	rm.members[m] = struct{}{}
	size := len(rm.members)
	rm.mu.Unlock()
	r.mu.Unlock()

	r.logger.Debug("session joined room",
		"room", key.String(),
		"user_id", m.UserID(),
		"members", size)
}

// Leave removes the member and reclaims the room entry when it empties.
// Idempotent: leaving twice, or leaving a room never joined, is harmless.
func (r *Registry) Leave(key RoomKey, m Member) {
	r.mu.Lock()
	rm, ok := r.rooms[key]
	if !ok {
		r.mu.Unlock()
		return
	}

	rm.mu.Lock()
	delete(rm.members, m)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		delete(r.rooms, key)
	}
	r.mu.Unlock()

	r.logger.Debug("session left room",
		"room", key.String(),
		"user_id", m.UserID())
}

// Members returns a snapshot of the room's member set. The snapshot may be
// stale by the time delivery completes; a session that disconnects
// mid-broadcast simply receives nothing.
func (r *Registry) Members(key RoomKey) []Member {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.RLock()
	members := make([]Member, 0, len(rm.members))
	for m := range rm.members {
		members = append(members, m)
	}
	rm.mu.RUnlock()
	return members
}

// RoomCount returns the number of live rooms (used by the readiness probe).
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
