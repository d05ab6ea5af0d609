package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scsync/internal/diag"
)

var upgrader = websocket.Upgrader{}

func newTestServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server goroutine time to register the client.
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("want 1 registered client, got %d", hub.ClientCount())
	}

	hub.Broadcast(Frame{Contract: "ESZ6", TradeDate: "2026-03-05", State: "Streaming", BucketsDone: 3, Anomalies: diag.Counts{diag.UnresolvedTrade: 1}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Contract != "ESZ6" || frame.BucketsDone != 3 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestClientCountDropsOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("want 0 clients after disconnect, got %d", hub.ClientCount())
	}
}
