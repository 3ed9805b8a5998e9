// ABOUTME: HTTP handlers for conversations, messages, replies, and read state
// ABOUTME: Mirrors the marketplace frontend contract including response envelopes

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/careconnect/care-gateway/internal/auth"
	"github.com/careconnect/care-gateway/internal/store"
)

// CreateMessageRequest is the JSON request body for POST /api/messages.
// When reply_to is set the request creates a Reply instead: the id is
// resolved first as a Reply, then as a Message, then rejected.
type CreateMessageRequest struct {
	Receiver string `json:"receiver" validate:"required"`
	Content  string `json:"content" validate:"required"`
	ReplyTo  string `json:"reply_to,omitempty"`
}

// CreateReplyRequest is the JSON request body for POST /api/messages/{message_id}/replies.
type CreateReplyRequest struct {
	Content string `json:"content" validate:"required"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// MessageResponse is the JSON shape for a root message with its reply thread.
type MessageResponse struct {
	ID        string          `json:"id"`
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Content   string          `json:"content"`
	Timestamp string          `json:"timestamp"`
	Read      bool            `json:"read"`
	Replies   []ReplyResponse `json:"replies"`
}

// ReplyResponse is the JSON shape for a reply. Message carries the root
// message id; reply_to the optional parent reply within the same thread.
type ReplyResponse struct {
	ID        string  `json:"id"`
	Message   string  `json:"message"`
	Sender    string  `json:"sender"`
	Receiver  *string `json:"receiver"`
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
	ReplyTo   *string `json:"reply_to"`
}

func replyResponse(r *store.Reply) ReplyResponse {
	return ReplyResponse{
		ID:        r.ID,
		Message:   r.MessageID,
		Sender:    r.SenderID,
		Receiver:  r.ReceiverID,
		Content:   r.Content,
		Timestamp: r.CreatedAt.Format(time.RFC3339),
		ReplyTo:   r.ReplyToID,
	}
}

func threadResponse(t *store.Thread) MessageResponse {
	return MessageResponse{
		ID:        t.Message.ID,
		Sender:    t.Message.SenderID,
		Receiver:  t.Message.ReceiverID,
		Content:   t.Message.Content,
		Timestamp: t.Message.CreatedAt.Format(time.RFC3339),
		Read:      t.Message.Read,
		Replies:   lo.Map(t.Replies, func(r *store.Reply, _ int) ReplyResponse { return replyResponse(r) }),
	}
}

// handleListConversations handles GET /api/messages.
// Returns every thread the authenticated user participates in, ordered
// ascending by time, under the all_messages envelope.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.sendJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	threads, err := s.store.GetAllConversations(r.Context(), userID)
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"all_messages": lo.Map(threads, func(t *store.Thread, _ int) MessageResponse { return threadResponse(t) }),
	})
}

// handleConversation handles GET /api/messages/{user_id}.
// Returns the thread history between the authenticated user and the
// counterpart under the conversation envelope.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.sendJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	counterpart := mux.Vars(r)["user_id"]

	threads, err := s.store.GetConversation(r.Context(), userID, counterpart)
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"conversation": lo.Map(threads, func(t *store.Thread, _ int) MessageResponse { return threadResponse(t) }),
	})
}

// handleCreateMessage handles POST /api/messages.
// Without reply_to this creates a root message. With reply_to the target is
// resolved as a Reply first, then as a Message (the reply joins that thread
// directly), and otherwise rejected with 404.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.sendJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateMessageRequest
	if err := s.decodeAndValidate(r.Body, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ReplyTo == "" {
		msg, err := s.store.SaveMessage(r.Context(), userID, req.Receiver, req.Content)
		if err != nil {
			s.storeError(w, err)
			return
		}
		s.sendJSON(w, http.StatusCreated, threadResponse(&store.Thread{Message: msg, Replies: []*store.Reply{}}))
		return
	}

	target, err := s.store.ResolveReplyTarget(r.Context(), req.ReplyTo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusNotFound, "message or reply not found")
			return
		}
		s.storeError(w, err)
		return
	}

	params := store.CreateReplyParams{
		SenderID:   userID,
		ReceiverID: &req.Receiver,
		Content:    req.Content,
	}
	if target.Reply != nil {
		params.MessageID = target.Reply.MessageID
		params.ReplyToID = &target.Reply.ID
	} else {
		params.MessageID = target.Message.ID
	}

	reply, err := s.store.CreateReply(r.Context(), params)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, replyResponse(reply))
}

// handleCreateReply handles POST /api/messages/{message_id}/replies.
// Only the two participants of the root message may reply; the receiver is
// inferred as the other participant.
func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.sendJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	messageID := mux.Vars(r)["message_id"]

	msg, err := s.store.GetMessage(r.Context(), messageID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if userID != msg.SenderID && userID != msg.ReceiverID {
		s.sendJSONError(w, http.StatusForbidden, "you cannot reply to this message")
		return
	}

	var req CreateReplyRequest
	if err := s.decodeAndValidate(r.Body, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := store.CreateReplyParams{
		MessageID: messageID,
		SenderID:  userID,
		Content:   req.Content,
	}
	if req.ReplyTo != "" {
		params.ReplyToID = &req.ReplyTo
	}

	reply, err := s.store.CreateReply(r.Context(), params)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, replyResponse(reply))
}

// handleMarkRead handles POST /api/messages/{user_id}/mark-read.
// Marks every unread message from the counterpart to the authenticated user
// as read. Idempotent.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.sendJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	peer := mux.Vars(r)["user_id"]

	if _, err := s.store.MarkRead(r.Context(), peer, userID); err != nil {
		s.storeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "messages marked as read"})
}

// handleUnreadCount handles GET /api/messages/{user_id}/unread.
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.sendJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	peer := mux.Vars(r)["user_id"]

	count, err := s.store.UnreadCount(r.Context(), peer, userID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady handles GET /health/ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"rooms":  s.registry.RoomCount(),
	})
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
func (s *Server) decodeAndValidate(body io.Reader, dst any) error {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// storeError maps store errors onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrForbidden):
		s.sendJSONError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error("store operation failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}
