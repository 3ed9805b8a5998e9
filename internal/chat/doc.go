// Package chat provides the live messaging layer: room registry, broadcast
// fan-out, and per-connection websocket sessions.
//
// # Rooms
//
// A room is a transient in-memory subscription group keyed by the ordered
// (customer_id, caregiver_id) pair from the connection route. Rooms exist
// only while sessions are joined; nothing about them is persisted and a
// process restart simply starts with an empty registry.
//
// # Sessions
//
// Each connected client gets one Session running its own goroutines:
// a read loop that processes inbound frames synchronously (persist first,
// then broadcast) and a write pump draining a buffered outbound channel.
// States are Connecting -> Open -> Closed with no resume semantics.
//
// # Delivery
//
// The Broadcaster fans a persisted event out to every other session in the
// room. The echo suppression compares the connection's authenticated user id
// to the event's sender. Enqueueing is non-blocking: one slow recipient never
// stalls delivery to the others, it just loses the event.
//
// # Wire format
//
// Inbound:  {"sender": "...", "receiver": "...", "message": "..."}
// Outbound: {"type": "chat_message", "message": "...", "sender": "...",
// "receiver": "...", "timestamp": "..."}
// Rejected frames produce {"type": "error", "code": "...", "error": "..."}
// sent to the originating session only.
package chat
