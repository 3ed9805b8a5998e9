// ABOUTME: Conversation index over the message/reply tables
// ABOUTME: Produces ordered conversation views with nested reply threads and unread counts

package store

import (
	"context"
	"fmt"
)

// GetConversation returns every thread between userA and userB, ordered by
// message timestamp ascending with replies nested in creation order.
// Recomputed fresh per call; safe for concurrent readers.
func (s *SQLiteStore) GetConversation(ctx context.Context, userA, userB string) ([]*Thread, error) {
	messageQuery := `
		SELECT id, sender_id, receiver_id, content, created_at, read
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC
	`
	replyQuery := `
		SELECT r.id, r.message_id, r.sender_id, r.receiver_id, r.content, r.created_at, r.reply_to_id
		FROM replies r
		JOIN messages m ON r.message_id = m.id
		WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
		ORDER BY r.created_at ASC
	`
	args := []any{userA, userB, userB, userA}
	return s.assembleThreads(ctx, messageQuery, replyQuery, args)
}

// GetAllConversations returns every thread the user participates in, across
// all counterparts, ordered by message timestamp ascending.
func (s *SQLiteStore) GetAllConversations(ctx context.Context, userID string) ([]*Thread, error) {
	messageQuery := `
		SELECT id, sender_id, receiver_id, content, created_at, read
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at ASC
	`
	replyQuery := `
		SELECT r.id, r.message_id, r.sender_id, r.receiver_id, r.content, r.created_at, r.reply_to_id
		FROM replies r
		JOIN messages m ON r.message_id = m.id
		WHERE m.sender_id = ? OR m.receiver_id = ?
		ORDER BY r.created_at ASC
	`
	args := []any{userID, userID}
	return s.assembleThreads(ctx, messageQuery, replyQuery, args)
}

// UnreadCount returns the number of unread messages from peerID to recipientID.
func (s *SQLiteStore) UnreadCount(ctx context.Context, peerID, recipientID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE sender_id = ? AND receiver_id = ? AND read = 0
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, peerID, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return count, nil
}

// assembleThreads runs the message and reply queries and stitches replies onto
// their root messages, preserving the ascending order of both queries.
func (s *SQLiteStore) assembleThreads(ctx context.Context, messageQuery, replyQuery string, args []any) ([]*Thread, error) {
	rows, err := s.db.QueryContext(ctx, messageQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	threads := make([]*Thread, 0)
	byMessage := make(map[string]*Thread)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		t := &Thread{Message: msg, Replies: make([]*Reply, 0)}
		threads = append(threads, t)
		byMessage[msg.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	replyRows, err := s.db.QueryContext(ctx, replyQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying replies: %w", err)
	}
	defer replyRows.Close()

	for replyRows.Next() {
		reply, err := scanReply(replyRows)
		if err != nil {
			return nil, fmt.Errorf("scanning reply: %w", err)
		}
		if t, ok := byMessage[reply.MessageID]; ok {
			t.Replies = append(t.Replies, reply)
		}
	}
	if err := replyRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating replies: %w", err)
	}

	return threads, nil
}
