package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stream-multiview/internal/platform/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, hub *Hub) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHub_replays_then_broadcasts(t *testing.T) {
	hub := NewHub(logger.Discard())
	hub.OnConnect(func() [][]byte {
		return [][]byte{[]byte(`{"t":"player","op":"create","id":"dQw4w9WgXcQ"}`)}
	})
	url := startHub(t, hub)
	conn := dial(t, url)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"player","op":"create","id":"dQw4w9WgXcQ"}`, string(msg))

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(Command{T: "player", Op: "play", ID: testID}))
	var cmd Command
	require.NoError(t, conn.ReadJSON(&cmd))
	assert.Equal(t, "play", cmd.Op)
	assert.Equal(t, testID, cmd.ID)
}

func TestHub_forwards_page_messages(t *testing.T) {
	hub := NewHub(logger.Discard())
	got := make(chan string, 1)
	hub.HandleMessages(func(msg []byte) { got <- string(msg) })
	conn := dial(t, startHub(t, hub))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"ready","id":"dQw4w9WgXcQ"}`)))
	select {
	case msg := <-got:
		assert.Contains(t, msg, `"ready"`)
	case <-time.After(5 * time.Second):
		t.Fatal("page message not forwarded")
	}
}

func TestHub_client_count_drops_on_disconnect(t *testing.T) {
	hub := NewHub(logger.Discard())
	conn := dial(t, startHub(t, hub))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_Broadcast_never_blocks(t *testing.T) {
	hub := NewHub(logger.Discard())
	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		err = hub.Broadcast(Command{T: "ka"})
	}
	assert.ErrorIs(t, err, ErrBacklog)
}

func TestHub_after_shutdown_closes_new_connections(t *testing.T) {
	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	cancel()
	select {
	case <-hub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}

	// More connections than the registration buffer holds.
	for i := 0; i < 40; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err = conn.ReadMessage()
		assert.Error(t, err, "connection %d should be closed by the hub", i)
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) {
			assert.False(t, netErr.Timeout(), "connection %d was left hanging", i)
		}
		_ = conn.Close()
	}
}
