// ABOUTME: Websocket endpoint upgrading connections into chat sessions
// ABOUTME: Route params (customer_id, caregiver_id) become the room key verbatim

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/careconnect/care-gateway/internal/auth"
	"github.com/careconnect/care-gateway/internal/chat"
)

// handleChatSocket handles GET /ws/chat/{customer_id}/{caregiver_id}.
// The ordered pair from the route is the room key; both participants'
// clients connect with the same (customer_id, caregiver_id) order. The
// connection's own identity comes from the bearer token, and the session
// blocks here until the client disconnects.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.sendJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	vars := mux.Vars(r)
	key := chat.RoomKey{
		CustomerID:  vars["customer_id"],
		CaregiverID: vars["caregiver_id"],
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error response.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	session := chat.NewSession(chat.SessionConfig{
		UserID:       userID,
		Key:          key,
		Conn:         conn,
		Store:        s.store,
		Registry:     s.registry,
		Broadcaster:  s.broadcaster,
		Logger:       s.logger,
		SendBuffer:   s.chatCfg.SendBuffer,
		ReadTimeout:  s.chatCfg.ReadTimeout,
		WriteTimeout: s.chatCfg.WriteTimeout,
	})

	s.logger.Info("chat session opened", "room", key.String(), "user_id", userID)
	session.Run(r.Context())
	s.logger.Info("chat session closed", "room", key.String(), "user_id", userID)
}
