package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/transcript"
)

func TestWSDeliversEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	h := Handler(hub, liveStub{highlighted: transcript.NoHighlight}, storeStub{}, ControlHooks{}, zerolog.Nop())

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// First frame is the connection handshake.
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read connection event: %v", err)
	}
	var connEvent ConnectionEvent
	if err := json.Unmarshal(msg, &connEvent); err != nil {
		t.Fatalf("unmarshal connection event: %v", err)
	}
	if connEvent.Type != "connection" || !connEvent.Connected {
		t.Errorf("unexpected handshake: %+v", connEvent)
	}

	// The subscription registers before the handshake is read, so a
	// broadcast now must reach the client.
	waitForClients(t, hub, 1)
	hub.NotifyHighlightChanged("s1", 2)

	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read highlight event: %v", err)
	}
	var highlight HighlightChangedEvent
	if err := json.Unmarshal(msg, &highlight); err != nil {
		t.Fatalf("unmarshal highlight event: %v", err)
	}
	if highlight.Index == nil || *highlight.Index != 2 {
		t.Errorf("unexpected highlight event: %+v", highlight)
	}
}

func TestWSClientDisconnectUnsubscribes(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	h := Handler(hub, liveStub{highlighted: transcript.NoHighlight}, storeStub{}, ControlHooks{}, zerolog.Nop())

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitForClients(t, hub, 1)
	_ = conn.Close()

	// The write loop notices the closed connection on the next frame.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.Broadcast([]byte(`{"type":"ping"}`))
		if hub.ClientCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client never unsubscribed, %d still registered", hub.ClientCount())
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d clients", n)
}
