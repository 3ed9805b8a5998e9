// ABOUTME: Store interface and data types for care-gateway persistence
// ABOUTME: Defines User, Message, Reply structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails validation (self-addressed
// message, empty content, unknown user id)
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when the actor is not allowed to perform the
// operation (e.g. replying to a conversation they are not part of)
var ErrForbidden = errors.New("forbidden")

// Role constants for marketplace users. The gateway never manages users
// itself; rows are synchronized in from the account service.
const (
	RoleCustomer         = "customer"
	RoleCaretaker        = "caretaker"
	RoleVocationalSchool = "vocational_school"
	RoleAdmin            = "admin"
)

// User is a known marketplace user, referenced by opaque id.
type User struct {
	ID       string
	Username string
	Role     string
}

// Message is a root chat message between two users.
// Read transitions false->true once per delivery batch and never back.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	CreatedAt  time.Time
	Read       bool
}

// Reply belongs to a thread rooted at a Message. ReceiverID may be nil when
// the target could not be inferred (third-party replier). ReplyToID, when
// set, points at another Reply under the same root Message.
type Reply struct {
	ID         string
	MessageID  string
	SenderID   string
	ReceiverID *string
	Content    string
	CreatedAt  time.Time
	ReplyToID  *string
}

// Thread is a root Message together with its replies, ordered by creation
// time ascending. The reply tree is flat storage; the tree shape is implied
// by ReplyToID.
type Thread struct {
	Message *Message
	Replies []*Reply
}

// CreateReplyParams carries the inputs for CreateReply.
type CreateReplyParams struct {
	MessageID  string
	SenderID   string
	ReceiverID *string // inferred from the parent pair when nil
	Content    string
	ReplyToID  *string
}

// ReplyTarget is the tagged result of resolving a reply-target id.
// Exactly one of Reply or Message is non-nil.
type ReplyTarget struct {
	Reply   *Reply
	Message *Message
}

// Store defines the persistence operations used by the API and chat layers.
type Store interface {
	// Users
	GetUser(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, user *User) error

	// Messages
	SaveMessage(ctx context.Context, senderID, receiverID, content string) (*Message, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
	MarkRead(ctx context.Context, peerID, recipientID string) (int64, error)

	// Replies
	CreateReply(ctx context.Context, params CreateReplyParams) (*Reply, error)
	ResolveReplyTarget(ctx context.Context, id string) (*ReplyTarget, error)

	// Conversation index
	GetConversation(ctx context.Context, userA, userB string) ([]*Thread, error)
	GetAllConversations(ctx context.Context, userID string) ([]*Thread, error)
	UnreadCount(ctx context.Context, peerID, recipientID string) (int, error)

	Close() error
}
