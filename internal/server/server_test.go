package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ageniuscoder/mmsocial/backend/internal/chat"
	"github.com/ageniuscoder/mmsocial/backend/internal/config"
	"github.com/ageniuscoder/mmsocial/backend/internal/conversations"
	"github.com/ageniuscoder/mmsocial/backend/internal/messages"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv *httptest.Server
	db  *sqlite.Sqlite
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))

	cfg := config.Config{
		Auth:      config.AuthConfig{JWTSecret: "e2e-secret", JWTTTLMin: 5},
		WebSocket: config.WebSocketConfig{SendBuffer: 16},
	}
	s := New(cfg, db.DB, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(s.Engine)
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return &testEnv{srv: srv, db: db}
}

func (e *testEnv) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type account struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func (e *testEnv) signup(t *testing.T, username string) account {
	t.Helper()
	var a account
	code := e.call(t, http.MethodPost, "/api/auth/signup", "", gin.H{"username": username, "password": "secret1"}, &a)
	require.Equal(t, http.StatusCreated, code)
	return a
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) chat.WireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var w chat.WireMessage
	require.NoError(t, conn.ReadJSON(&w))
	return w
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	var body map[string]string
	code := env.call(t, http.MethodGet, "/healthz", "", nil, &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestSendDeliversToOnlineReceiver(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	bobWS := env.dial(t, bob.Token)
	online := readFrame(t, bobWS)
	require.Equal(t, chat.EventOnlineUsers, online.Type)
	assert.Equal(t, []string{bob.UserID}, online.Users)

	var sent messages.Message
	code := env.call(t, http.MethodPost, "/api/messages/send/"+bob.UserID, alice.Token, gin.H{"message": "hi bob"}, &sent)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, alice.UserID, sent.SenderID)
	assert.Equal(t, bob.UserID, sent.ReceiverID)
	assert.Equal(t, "hi bob", sent.Body)

	pushed := readFrame(t, bobWS)
	require.Equal(t, chat.EventNewMessage, pushed.Type)
	require.NotNil(t, pushed.Message)
	assert.Equal(t, sent.ID, pushed.Message.ID)

	var fromAlice, fromBob []messages.Message
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/messages/"+bob.UserID, alice.Token, nil, &fromAlice))
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/messages/"+alice.UserID, bob.Token, nil, &fromBob))
	require.Len(t, fromAlice, 1)
	assert.Equal(t, fromAlice, fromBob)
	assert.Equal(t, sent.ID, fromAlice[0].ID)
}

func TestSendToOfflineReceiverIsStillStored(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	for _, body := range []string{"one", "two", "three"} {
		code := env.call(t, http.MethodPost, "/api/messages/send/"+bob.UserID, alice.Token, gin.H{"message": body}, nil)
		require.Equal(t, http.StatusCreated, code)
	}
	code := env.call(t, http.MethodPost, "/api/messages/send/"+alice.UserID, bob.Token, gin.H{"message": "four"}, nil)
	require.Equal(t, http.StatusCreated, code)

	var got []messages.Message
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/messages/"+alice.UserID, bob.Token, nil, &got))
	require.Len(t, got, 4)
	bodies := []string{got[0].Body, got[1].Body, got[2].Body, got[3].Body}
	assert.Equal(t, []string{"one", "two", "three", "four"}, bodies)

	var page []messages.Message
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/messages/"+alice.UserID+"?limit=2&offset=1", bob.Token, nil, &page))
	require.Len(t, page, 2)
	assert.Equal(t, "two", page[0].Body)
	assert.Equal(t, "three", page[1].Body)

	var convs []conversations.Summary
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/conversations", alice.Token, nil, &convs))
	require.Len(t, convs, 1)
	assert.ElementsMatch(t, []string{alice.UserID, bob.UserID}, convs[0].Participants[:])

	orphans, err := messages.NewLog(env.db.Conn()).Orphans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestFetchWithoutConversationIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	var got []messages.Message
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/messages/"+bob.UserID, alice.Token, nil, &got))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSendRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	tests := []struct {
		name string
		to   string
		body any
	}{
		{"missing field", bob.UserID, gin.H{}},
		{"blank body", bob.UserID, gin.H{"message": "   "}},
		{"too long", bob.UserID, gin.H{"message": strings.Repeat("x", messages.MaxBodyLength+1)}},
		{"to self", alice.UserID, gin.H{"message": "me"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := env.call(t, http.MethodPost, "/api/messages/send/"+tt.to, alice.Token, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}

	var convs []conversations.Summary
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/conversations", alice.Token, nil, &convs))
	assert.Empty(t, convs)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/conversations", "/api/messages/someone", "/api/me", "/api/users/online"} {
		assert.Equal(t, http.StatusUnauthorized, env.call(t, http.MethodGet, path, "", nil, nil), path)
	}

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(env.srv.URL, "http")+"/api/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOnlineUsersFollowConnections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	aliceWS := env.dial(t, alice.Token)
	readFrame(t, aliceWS)
	bobWS := env.dial(t, bob.Token)
	readFrame(t, bobWS)

	update := readFrame(t, aliceWS)
	require.Equal(t, chat.EventOnlineUsers, update.Type)
	assert.ElementsMatch(t, []string{alice.UserID, bob.UserID}, update.Users)

	var online struct {
		Users []string `json:"users"`
	}
	require.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/users/online", alice.Token, nil, &online))
	assert.ElementsMatch(t, []string{alice.UserID, bob.UserID}, online.Users)

	require.NoError(t, bobWS.Close())
	update = readFrame(t, aliceWS)
	assert.Equal(t, []string{alice.UserID}, update.Users)
}
