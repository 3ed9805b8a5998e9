// ABOUTME: HTTP server wiring for the messaging API and websocket endpoint
// ABOUTME: Routes via gorilla/mux with bearer-token middleware on /api and /ws

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/careconnect/care-gateway/internal/auth"
	"github.com/careconnect/care-gateway/internal/chat"
	"github.com/careconnect/care-gateway/internal/config"
	"github.com/careconnect/care-gateway/internal/store"
)

// Server exposes the messaging store and live chat layer over HTTP.
type Server struct {
	store       store.Store
	registry    *chat.Registry
	broadcaster *chat.Broadcaster
	verifier    auth.TokenVerifier
	chatCfg     config.ChatConfig
	logger      *slog.Logger
	validate    *validator.Validate
	upgrader    websocket.Upgrader
}

// NewServer creates the API server. Pass nil logger for default.
func NewServer(st store.Store, registry *chat.Registry, broadcaster *chat.Broadcaster,
	verifier auth.TokenVerifier, chatCfg config.ChatConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       st,
		registry:    registry,
		broadcaster: broadcaster,
		verifier:    verifier,
		chatCfg:     chatCfg,
		logger:      logger.With("component", "api"),
		validate:    validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checking is the ingress proxy's job; the gateway sits
			// behind it and trusts the bearer token instead.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes builds the router. Everything under /api and /ws requires a valid
// bearer token; health probes are open.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/health/ready", s.handleReady).Methods("GET")

	authed := auth.Middleware(s.verifier)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authed)
	api.HandleFunc("/messages", s.handleListConversations).Methods("GET")
	api.HandleFunc("/messages", s.handleCreateMessage).Methods("POST")
	api.HandleFunc("/messages/{message_id}/replies", s.handleCreateReply).Methods("POST")
	api.HandleFunc("/messages/{user_id}/mark-read", s.handleMarkRead).Methods("POST")
	api.HandleFunc("/messages/{user_id}/unread", s.handleUnreadCount).Methods("GET")
	api.HandleFunc("/messages/{user_id}", s.handleConversation).Methods("GET")

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(authed)
	ws.HandleFunc("/chat/{customer_id}/{caregiver_id}", s.handleChatSocket).Methods("GET")

	return r
}
