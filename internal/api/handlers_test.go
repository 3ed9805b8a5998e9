// ABOUTME: HTTP handler tests against a real temp-file store
// ABOUTME: Covers envelopes, reply fallback resolution, and error statuses

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careconnect/care-gateway/internal/auth"
	"github.com/careconnect/care-gateway/internal/chat"
	"github.com/careconnect/care-gateway/internal/config"
	"github.com/careconnect/care-gateway/internal/store"
)

const testSecret = "test-secret"

type testServer struct {
	srv      *Server
	store    *store.SQLiteStore
	registry *chat.Registry
	verifier *auth.JWTVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	users := []*store.User{
		{ID: "10", Username: "alice", Role: store.RoleCustomer},
		{ID: "20", Username: "bob", Role: store.RoleCaretaker},
		{ID: "30", Username: "carol", Role: store.RoleCustomer},
	}
	for _, u := range users {
		require.NoError(t, st.UpsertUser(ctx, u))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := chat.NewRegistry(logger)
	broadcaster := chat.NewBroadcaster(registry, logger)
	verifier := auth.NewJWTVerifier([]byte(testSecret))

	srv := NewServer(st, registry, broadcaster, verifier, config.Default().Chat, logger)
	return &testServer{srv: srv, store: st, registry: registry, verifier: verifier}
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.verifier.Generate(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, userID))
	}
	rec := httptest.NewRecorder()
	ts.srv.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func TestCreateMessage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/messages", "10", CreateMessageRequest{
		Receiver: "20",
		Content:  "hello bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp MessageResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "10", resp.Sender)
	assert.Equal(t, "20", resp.Receiver)
	assert.Equal(t, "hello bob", resp.Content)
	assert.False(t, resp.Read)
	assert.Empty(t, resp.Replies)
}

func TestCreateMessage_ValidationFailures(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  CreateMessageRequest
	}{
		{"missing content", CreateMessageRequest{Receiver: "20"}},
		{"missing receiver", CreateMessageRequest{Content: "hi"}},
		{"self addressed", CreateMessageRequest{Receiver: "10", Content: "hi"}},
		{"unknown receiver", CreateMessageRequest{Receiver: "999", Content: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, "POST", "/api/messages", "10", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateMessage_ReplyToMessage(t *testing.T) {
	ts := newTestServer(t)

	msg, err := ts.store.SaveMessage(context.Background(), "10", "20", "root")
	require.NoError(t, err)

	rec := ts.do(t, "POST", "/api/messages", "20", CreateMessageRequest{
		Receiver: "10",
		Content:  "replying",
		ReplyTo:  msg.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ReplyResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, msg.ID, resp.Message)
	assert.Equal(t, "20", resp.Sender)
	assert.Nil(t, resp.ReplyTo)
}

func TestCreateMessage_ReplyToReply(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	msg, err := ts.store.SaveMessage(ctx, "10", "20", "root")
	require.NoError(t, err)
	first, err := ts.store.CreateReply(ctx, store.CreateReplyParams{
		MessageID: msg.ID,
		SenderID:  "20",
		Content:   "first reply",
	})
	require.NoError(t, err)

	rec := ts.do(t, "POST", "/api/messages", "10", CreateMessageRequest{
		Receiver: "20",
		Content:  "nested",
		ReplyTo:  first.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ReplyResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, msg.ID, resp.Message)
	require.NotNil(t, resp.ReplyTo)
	assert.Equal(t, first.ID, *resp.ReplyTo)
}

func TestCreateMessage_ReplyToUnknownTarget(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/messages", "10", CreateMessageRequest{
		Receiver: "20",
		Content:  "into the void",
		ReplyTo:  "no-such-id",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateReply(t *testing.T) {
	ts := newTestServer(t)

	msg, err := ts.store.SaveMessage(context.Background(), "10", "20", "root")
	require.NoError(t, err)

	rec := ts.do(t, "POST", "/api/messages/"+msg.ID+"/replies", "20", CreateReplyRequest{
		Content: "on it",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ReplyResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, msg.ID, resp.Message)
	assert.Equal(t, "20", resp.Sender)
	require.NotNil(t, resp.Receiver)
	assert.Equal(t, "10", *resp.Receiver)
}

func TestCreateReply_NonParticipantForbidden(t *testing.T) {
	ts := newTestServer(t)

	msg, err := ts.store.SaveMessage(context.Background(), "10", "20", "root")
	require.NoError(t, err)

	rec := ts.do(t, "POST", "/api/messages/"+msg.ID+"/replies", "30", CreateReplyRequest{
		Content: "butting in",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateReply_UnknownMessage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/messages/no-such-id/replies", "10", CreateReplyRequest{
		Content: "hello?",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversations(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := ts.store.SaveMessage(ctx, "10", "20", "to bob")
	require.NoError(t, err)
	_, err = ts.store.SaveMessage(ctx, "30", "10", "from carol")
	require.NoError(t, err)
	_, err = ts.store.SaveMessage(ctx, "20", "30", "not alice's")
	require.NoError(t, err)

	rec := ts.do(t, "GET", "/api/messages", "10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AllMessages []MessageResponse `json:"all_messages"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.AllMessages, 2)
	assert.Equal(t, "to bob", resp.AllMessages[0].Content)
	assert.Equal(t, "from carol", resp.AllMessages[1].Content)
}

func TestConversation(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	msg, err := ts.store.SaveMessage(ctx, "10", "20", "hi bob")
	require.NoError(t, err)
	_, err = ts.store.CreateReply(ctx, store.CreateReplyParams{
		MessageID: msg.ID,
		SenderID:  "20",
		Content:   "hi alice",
	})
	require.NoError(t, err)
	_, err = ts.store.SaveMessage(ctx, "30", "10", "unrelated")
	require.NoError(t, err)

	rec := ts.do(t, "GET", "/api/messages/20", "10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Conversation []MessageResponse `json:"conversation"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Conversation, 1)
	require.Len(t, resp.Conversation[0].Replies, 1)
	assert.Equal(t, "hi alice", resp.Conversation[0].Replies[0].Content)
}

func TestMarkRead(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	msg, err := ts.store.SaveMessage(ctx, "20", "10", "unread")
	require.NoError(t, err)

	rec := ts.do(t, "POST", "/api/messages/20/mark-read", "10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "messages marked as read", resp["status"])

	got, err := ts.store.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	// Second call is a no-op with the same response.
	rec = ts.do(t, "POST", "/api/messages/20/mark-read", "10", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnreadCount(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := ts.store.SaveMessage(ctx, "20", "10", "one")
	require.NoError(t, err)
	_, err = ts.store.SaveMessage(ctx, "20", "10", "two")
	require.NoError(t, err)
	_, err = ts.store.SaveMessage(ctx, "10", "20", "outbound")
	require.NoError(t, err)

	rec := ts.do(t, "GET", "/api/messages/20/unread", "10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp["unread"])
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/messages", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("GET", "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	got := httptest.NewRecorder()
	ts.srv.Routes().ServeHTTP(got, req)
	assert.Equal(t, http.StatusUnauthorized, got.Code)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "GET", "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ready", resp["status"])
	assert.Equal(t, float64(0), resp["rooms"])
}
