// ABOUTME: Wire frame types and room key for the realtime chat protocol
// ABOUTME: Inbound {sender,receiver,message}, outbound chat_message events, error frames

package chat

import (
	"time"

	"github.com/careconnect/care-gateway/internal/store"
)

// RoomKey identifies a live room. The pair is taken verbatim from the
// connection route and is NOT sorted: both participants' clients are expected
// to connect with the same (customer_id, caregiver_id) order.
type RoomKey struct {
	CustomerID  string
	CaregiverID string
}

// String renders the key for logging.
func (k RoomKey) String() string {
	return "chat:" + k.CustomerID + ":" + k.CaregiverID
}

// Contains reports whether id is one of the two participants.
func (k RoomKey) Contains(id string) bool {
	return id == k.CustomerID || id == k.CaregiverID
}

// InboundFrame is the client-to-session message payload.
type InboundFrame struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Message  string `json:"message"`
}

// Frame type constants
const (
	EventTypeChatMessage = "chat_message"
	EventTypeError       = "error"
)

// Event is the session-to-client frame broadcast after a message is persisted.
type Event struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Timestamp string `json:"timestamp"`
}

// NewChatEvent builds the outbound event for a persisted message.
func NewChatEvent(msg *store.Message) *Event {
	return &Event{
		Type:      EventTypeChatMessage,
		Message:   msg.Content,
		Sender:    msg.SenderID,
		Receiver:  msg.ReceiverID,
		Timestamp: msg.CreatedAt.Format(time.RFC3339),
	}
}

// Error codes returned to the originating session. Validation and not-found
// failures are never broadcast; they go back to the sender only.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeForbidden     = "forbidden"
	ErrCodeInternalError = "internal_error"
)

// ErrorFrame is sent to the originating session when an inbound frame is
// rejected. An explicit frame, not a silent drop: the client must be able to
// distinguish rejection from network loss.
type ErrorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}
