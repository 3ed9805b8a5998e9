// ABOUTME: Fan-out of persisted chat events to every live session in a room
// ABOUTME: Applies the no-echo-to-sender rule by connection identity, never blocks on a slow peer

package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Broadcaster pushes persisted events to the sessions registered for a room.
// Delivery is best-effort and unordered across sessions; each session's own
// outbound queue stays FIFO.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry.
// Pass nil logger for default.
func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		registry: registry,
		logger:   logger.With("component", "broadcaster"),
	}
}

// Publish delivers event to every member of the room except sessions whose
// own user identity equals the event's sender. A sender with two simultaneous
// connections receives its echo on neither; the same person connected as the
// other party of the pair does receive it.
//
// Enqueueing is non-blocking: a full outbound buffer drops the event for that
// session rather than stalling delivery to the others. Publishing to an empty
// or already-vacated room is a no-op.
func (b *Broadcaster) Publish(key RoomKey, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	for _, m := range b.registry.Members(key) {
		if m.UserID() == event.Sender {
			continue
		}
		if !m.Deliver(payload) {
			b.logger.Debug("dropped event for slow session",
				"room", key.String(),
				"user_id", m.UserID(),
				"sender", event.Sender)
		}
	}
	return nil
}
