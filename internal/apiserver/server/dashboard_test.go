package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/apiserver/events"
)

func wsURL(srv *httptest.Server, query string) string {
	u := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws/dashboard"
	if query != "" {
		u += "?" + query
	}
	return u
}

func TestDashboardBroadcast(t *testing.T) {
	hub := NewDashboardHub(auth.Config{}, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	// 等待连接登记完成
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(events.SessionEvent{
		Type:      "session.status_changed",
		SessionID: "sess-1",
		Status:    "completed",
		Name:      "Portrait shoot",
		At:        time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg DashboardMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "session.status_changed", msg.Type)

	payload, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sess-1", payload["sessionId"])
	assert.Equal(t, "completed", payload["status"])
}

func TestDashboardIgnoresUnknownEvents(t *testing.T) {
	hub := NewDashboardHub(auth.Config{}, nil)

	// 未知事件类型直接丢弃，不应 panic
	hub.Publish("not an event")
	hub.Publish(42)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestDashboardAuth(t *testing.T) {
	cfg := auth.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: time.Hour,
	}
	hub := NewDashboardHub(cfg, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	t.Run("missing token rejected", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("non admin rejected", func(t *testing.T) {
		token, err := auth.GenerateAccessToken(cfg, "usr-ph1", "ph@example.com", "photographer")
		require.NoError(t, err)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		token, err := auth.GenerateRefreshToken(cfg, "usr-a")
		require.NoError(t, err)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin connects", func(t *testing.T) {
		token, err := auth.GenerateAccessToken(cfg, "usr-a", "admin@example.com", "admin")
		require.NoError(t, err)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+token), nil)
		require.NoError(t, err)
		conn.Close()
	})
}

func TestDashboardUserEvent(t *testing.T) {
	hub := NewDashboardHub(auth.Config{}, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(events.UserEvent{
		Type:   "user.status_changed",
		UserID: "usr-ph1",
		Role:   "photographer",
		Status: "approved",
		At:     time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg DashboardMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "user.status_changed", msg.Type)
}
