// ABOUTME: Message and reply persistence operations for the chat ledger
// ABOUTME: Covers SaveMessage, bulk mark-read, reply creation and reply-target resolution

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeFormat is the canonical timestamp encoding. Fixed-width nanoseconds keep
// lexical order identical to chronological order (RFC3339Nano trims trailing
// zeros, so a whole-second value would sort after fractional ones), which
// ORDER BY created_at relies on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SaveMessage validates and persists a new root message with read=false and a
// server-assigned timestamp. Returns ErrValidation if sender equals receiver,
// content is empty, or either id does not reference a known user.
func (s *SQLiteStore) SaveMessage(ctx context.Context, senderID, receiverID, content string) (*Message, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: sender and receiver must differ", ErrValidation)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	for _, id := range []string{senderID, receiverID} {
		ok, err := s.userExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown user %q", ErrValidation, id)
		}
	}

	msg := &Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Read:       false,
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content, created_at, read)
		VALUES (?, ?, ?, ?, ?, 0)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.CreatedAt.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("message saved",
		"message_id", msg.ID,
		"sender", msg.SenderID,
		"receiver", msg.ReceiverID)
	return msg, nil
}

// GetMessage retrieves a single message by id
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, content, created_at, read
		FROM messages WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	return msg, nil
}

// MarkRead flips read=true on every unread message from peerID to recipientID
// and returns the number of rows affected. Idempotent: a call with no unread
// messages in that direction is a no-op. Replies carry no read tracking.
func (s *SQLiteStore) MarkRead(ctx context.Context, peerID, recipientID string) (int64, error) {
	query := `
		UPDATE messages SET read = 1
		WHERE sender_id = ? AND receiver_id = ? AND read = 0
	`
	res, err := s.db.ExecContext(ctx, query, peerID, recipientID)
	if err != nil {
		return 0, fmt.Errorf("marking messages read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}

	if affected > 0 {
		s.logger.Debug("messages marked read",
			"peer", peerID,
			"recipient", recipientID,
			"count", affected)
	}
	return affected, nil
}

// CreateReply persists a reply under an existing root message.
// Returns ErrNotFound if the parent message does not exist or ReplyToID does
// not resolve to a reply under the same parent. When ReceiverID is nil it is
// inferred as the other participant of the parent pair; a third-party sender
// leaves it unset.
func (s *SQLiteStore) CreateReply(ctx context.Context, params CreateReplyParams) (*Reply, error) {
	if params.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	ok, err := s.userExists(ctx, params.SenderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown user %q", ErrValidation, params.SenderID)
	}

	parent, err := s.GetMessage(ctx, params.MessageID)
	if err != nil {
		return nil, err
	}

	if params.ReplyToID != nil {
		target, err := s.getReply(ctx, *params.ReplyToID)
		if err != nil {
			return nil, err
		}
		if target.MessageID != parent.ID {
			return nil, fmt.Errorf("%w: reply target belongs to a different thread", ErrNotFound)
		}
	}

	receiver := params.ReceiverID
	if receiver == nil {
		switch params.SenderID {
		case parent.SenderID:
			receiver = &parent.ReceiverID
		case parent.ReceiverID:
			receiver = &parent.SenderID
		}
		// Third-party sender: receiver stays unset.
	}

	reply := &Reply{
		ID:         uuid.New().String(),
		MessageID:  parent.ID,
		SenderID:   params.SenderID,
		ReceiverID: receiver,
		Content:    params.Content,
		CreatedAt:  time.Now().UTC(),
		ReplyToID:  params.ReplyToID,
	}

	query := `
		INSERT INTO replies (id, message_id, sender_id, receiver_id, content, created_at, reply_to_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		reply.ID, reply.MessageID, reply.SenderID, reply.ReceiverID,
		reply.Content, reply.CreatedAt.Format(timeFormat), reply.ReplyToID)
	if err != nil {
		return nil, fmt.Errorf("inserting reply: %w", err)
	}

	s.logger.Debug("reply saved",
		"reply_id", reply.ID,
		"message_id", reply.MessageID,
		"sender", reply.SenderID)
	return reply, nil
}

// ResolveReplyTarget resolves an id that may name either a Reply or a root
// Message, preferring the reply interpretation. Returns ErrNotFound when the
// id matches neither.
func (s *SQLiteStore) ResolveReplyTarget(ctx context.Context, id string) (*ReplyTarget, error) {
	reply, err := s.getReply(ctx, id)
	if err == nil {
		return &ReplyTarget{Reply: reply}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	msg, err := s.GetMessage(ctx, id)
	if err == nil {
		return &ReplyTarget{Message: msg}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: no message or reply with id %q", ErrNotFound, id)
}

// getReply retrieves a single reply by id
func (s *SQLiteStore) getReply(ctx context.Context, id string) (*Reply, error) {
	query := `
		SELECT id, message_id, sender_id, receiver_id, content, created_at, reply_to_id
		FROM replies WHERE id = ?
	`
	reply, err := scanReply(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying reply: %w", err)
	}
	return reply, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	msg := &Message{}
	var createdAt string
	var read int
	if err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &createdAt, &read); err != nil {
		return nil, err
	}
	ts, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing message timestamp: %w", err)
	}
	msg.CreatedAt = ts
	msg.Read = read != 0
	return msg, nil
}

func scanReply(row rowScanner) (*Reply, error) {
	reply := &Reply{}
	var createdAt string
	if err := row.Scan(&reply.ID, &reply.MessageID, &reply.SenderID, &reply.ReceiverID,
		&reply.Content, &createdAt, &reply.ReplyToID); err != nil {
		return nil, err
	}
	ts, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing reply timestamp: %w", err)
	}
	reply.CreatedAt = ts
	return reply, nil
}
