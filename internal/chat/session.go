// ABOUTME: One live websocket session per connected client
// ABOUTME: Owns inbound decode, persist-then-broadcast, outbound write pump, and lifecycle

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/careconnect/care-gateway/internal/store"
)

// Session states. A dropped connection is terminal; any later activity
// requires a brand-new session.
const (
	StateConnecting int32 = iota
	StateOpen
	StateClosed
)

const (
	defaultSendBuffer   = 64
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 10 * time.Second
	maxFrameBytes       = 1 << 20
)

// SessionConfig carries the collaborators and tuning for a Session.
type SessionConfig struct {
	UserID      string // authenticated user id for this connection
	Key         RoomKey
	Conn        *websocket.Conn
	Store       store.Store
	Registry    *Registry
	Broadcaster *Broadcaster
	Logger      *slog.Logger

	SendBuffer   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Session is one live bidirectional channel for a connected client.
// Inbound frames are processed synchronously to completion (persist, then
// broadcast) before the next is accepted, so delivery into the store is
// FIFO per session.
type Session struct {
	id          string
	userID      string
	key         RoomKey
	conn        *websocket.Conn
	store       store.Store
	registry    *Registry
	broadcaster *Broadcaster
	logger      *slog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration

	state     atomic.Int32
	outbound  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session in the Connecting state.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	s := &Session{
		id:           uuid.New().String(),
		userID:       cfg.UserID,
		key:          cfg.Key,
		conn:         cfg.Conn,
		store:        cfg.Store,
		registry:     cfg.Registry,
		broadcaster:  cfg.Broadcaster,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		outbound:     make(chan []byte, cfg.SendBuffer),
		done:         make(chan struct{}),
	}
	s.logger = logger.With("component", "session", "session_id", s.id, "room", s.key.String())
	return s
}

// UserID returns the authenticated identity of this connection.
func (s *Session) UserID() string { return s.userID }

// State returns the current lifecycle state.
func (s *Session) State() int32 { return s.state.Load() }

// Deliver enqueues payload on the outbound channel without blocking.
// Returns false when the session is closed or its buffer is full.
func (s *Session) Deliver(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbound <- payload:
		return true
	default:
		return false
	}
}

// Run joins the room, then pumps frames until the client disconnects or ctx
// is cancelled. The session is registered before the first inbound frame is
// accepted. Blocks until the session is closed.
func (s *Session) Run(ctx context.Context) {
	s.registry.Join(s.key, s)
	s.state.Store(StateOpen)
	defer s.Close()

	go s.writePump()

	// Cancellation tears the socket down, which unblocks the read loop.
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	s.conn.SetReadLimit(maxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) && !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Debug("read loop ended", "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		s.handleFrame(ctx, data)
	}
}

// handleFrame validates, persists, and broadcasts one inbound frame.
// Failures go back to this session as an error frame and are never broadcast;
// broadcast only ever follows successful persistence.
func (s *Session) handleFrame(ctx context.Context, data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(ErrCodeBadRequest, "invalid payload")
		return
	}

	if frame.Message == "" {
		s.sendError(ErrCodeBadRequest, "message is required")
		return
	}
	if frame.Sender == frame.Receiver {
		s.sendError(ErrCodeBadRequest, "sender and receiver must differ")
		return
	}
	// Both ids must be exactly the pair this room was opened for; a session
	// cannot impersonate a third party or post into a room it did not join.
	if !s.key.Contains(frame.Sender) || !s.key.Contains(frame.Receiver) {
		s.sendError(ErrCodeForbidden, "sender and receiver must match the room participants")
		return
	}
	for _, id := range []string{frame.Sender, frame.Receiver} {
		if _, err := s.store.GetUser(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.sendError(ErrCodeNotFound, "unknown user "+id)
			} else {
				s.sendError(ErrCodeInternalError, "user lookup failed")
			}
			return
		}
	}

	msg, err := s.store.SaveMessage(ctx, frame.Sender, frame.Receiver, frame.Message)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			s.sendError(ErrCodeBadRequest, err.Error())
		} else {
			s.logger.Error("message persist failed", "error", err)
			s.sendError(ErrCodeInternalError, "failed to save message")
		}
		return
	}

	// Immediate read-on-delivery: when the caregiver side is the receiver,
	// the whole sender->receiver direction is marked read at save time.
	// This conflates delivered with read; kept for compatibility with the
	// existing clients.
	if frame.Receiver == s.key.CaregiverID {
		if _, err := s.store.MarkRead(ctx, frame.Sender, frame.Receiver); err != nil {
			s.logger.Warn("mark read failed", "message_id", msg.ID, "error", err)
		}
	}

	if err := s.broadcaster.Publish(s.key, NewChatEvent(msg)); err != nil {
		s.logger.Error("broadcast failed", "message_id", msg.ID, "error", err)
	}
}

// sendError reports a rejected frame to the originating session only.
func (s *Session) sendError(code, msg string) {
	payload, err := json.Marshal(&ErrorFrame{Type: EventTypeError, Code: code, Error: msg})
	if err != nil {
		return
	}
	if !s.Deliver(payload) {
		s.logger.Debug("dropped error frame", "code", code)
	}
}

// writePump is the single writer on the connection. It drains the outbound
// channel and keeps the peer alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.readTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case payload := <-s.outbound:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close transitions the session to Closed, deregisters it from the room, and
// tears down the connection. Idempotent; safe to call from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(StateClosed)
		s.registry.Leave(s.key, s)
		close(s.done)

		deadline := time.Now().Add(s.writeTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()

		s.logger.Debug("session closed", "user_id", s.userID)
	})
}
