package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestReadPumpReturnsAfterHubStop(t *testing.T) {
	h := NewHub()
	h.Stop()

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("unexpected upgrade error: %v", err)
			return
		}
		c := &client{conn: conn, send: make(chan []byte, 1), id: "test"}
		go func() {
			c.readPump(h)
			close(done)
		}()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("unexpected dial error: %v", err)
	}
	conn.Close()

	// With the event loop gone, the client teardown must not hang on the
	// unregister channel.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readPump did not return after the hub stopped")
	}
}

func TestHubBroadcastReachesClient(t *testing.T) {
	h := NewHub()
	go h.Start()
	defer h.Stop()

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("unexpected dial error: %v", err)
	}
	defer conn.Close()

	// 等待注册完成
	time.Sleep(50 * time.Millisecond)
	h.BroadcastEvent(TrainingStarted, map[string]int{"epochs": 100})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if !strings.Contains(string(payload), string(TrainingStarted)) {
		t.Fatalf("expected a %s message, got %s", TrainingStarted, payload)
	}
}
