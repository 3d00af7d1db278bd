package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// roundTrip garante que mensagens anteriores já foram processadas pelo hub
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g1"}))
	roundTrip(t, conn)
	assert.Equal(t, 1, hub.Subscribers("g1"))

	hub.Broadcast(OddsUpdate{GameID: "g2", Payload: []byte(`{"x":1}`)})
	hub.Broadcast(OddsUpdate{GameID: "g1", Payload: []byte(`{"line_type":"moneyline"}`)})

	var got OddsUpdate
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "g1", got.GameID)
	assert.JSONEq(t, `{"line_type":"moneyline"}`, string(got.Payload))

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "unsubscribe", GameID: "g1"}))
	roundTrip(t, conn)
	assert.Zero(t, hub.Subscribers("g1"))
}

func TestHub_DisconnectDropsSubscriptions(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", GameID: "g1"}))
	roundTrip(t, conn)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Subscribers("g1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestDecodeUpdate(t *testing.T) {
	upd, ok := decodeUpdate(`{"gameId":"g1","payload":{"a":1}}`, zap.NewNop())
	require.True(t, ok)
	assert.Equal(t, "g1", upd.GameID)

	_, ok = decodeUpdate(`{"payload":{}}`, zap.NewNop())
	assert.False(t, ok)
	_, ok = decodeUpdate(`not json`, zap.NewNop())
	assert.False(t, ok)
}
