package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishWithNoClientDoesNotBlock(t *testing.T) {
	h := NewHub()
	go h.Run()

	done := make(chan struct{})
	go func() {
		h.Publish(KindDecisionTrace, "tenant-a", map[string]any{"final_tier": "intelligence"}, time.Now())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no connected client")
	}
}

func TestHub_DeliversEventToConnectedClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let the server-side register land

	h.Publish(KindUrgencyChange, "tenant-b", map[string]any{"level": "high"}, time.Now())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), `"kind":"urgency_change"`)
	require.Contains(t, string(msg), `"tenant_id":"tenant-b"`)
}

func TestHub_NewConnectionReplacesPrevious(t *testing.T) {
	h := NewHub()
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer first.Close()
	time.Sleep(20 * time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer second.Close()
	time.Sleep(20 * time.Millisecond)

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = first.ReadMessage()
	require.Error(t, err, "the first connection should have been closed when the second registered")
}
