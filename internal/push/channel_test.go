package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

func wsServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		handler(conn)
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestURLConversion(t *testing.T) {
	t.Parallel()

	got, err := URL("http://localhost:8000/", "/ws")
	if err != nil || got != "ws://localhost:8000/ws" {
		t.Fatalf("got %q err %v", got, err)
	}
	got, err = URL("https://example.test", "/ws_live_feed")
	if err != nil || got != "wss://example.test/ws_live_feed" {
		t.Fatalf("got %q err %v", got, err)
	}
}

func TestChannelDeliversFrames(t *testing.T) {
	t.Parallel()

	ts := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for i := 0; i < 3; i++ {
			msg, _ := json.Marshal(Event{
				Type:            EventFrame,
				Frame:           "aGVsbG8=",
				PersonCount:     2,
				RecognizedCount: 1,
			})
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer ts.Close()

	ch, err := Dial(context.Background(), wsURL(ts), Options{})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ch.Close()

	for i := 0; i < 3; i++ {
		select {
		case event := <-ch.Events():
			if event.Type != EventFrame || event.PersonCount != 2 || event.RecognizedCount != 1 {
				t.Fatalf("unexpected event: %+v", event)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
}

func TestChannelHeartbeatAndPongSuppression(t *testing.T) {
	t.Parallel()

	var pings atomic.Int32
	ts := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg Event
			if json.Unmarshal(payload, &msg) == nil && msg.Type == "ping" {
				pings.Add(1)
				pong, _ := json.Marshal(Event{Type: EventPong})
				if err := conn.WriteMessage(websocket.TextMessage, pong); err != nil {
					return
				}
			}
		}
	})
	defer ts.Close()

	ch, err := Dial(context.Background(), wsURL(ts), Options{HeartbeatInterval: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for pings.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 pings, got %d", pings.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Pongs are handled internally, never delivered.
	select {
	case event, ok := <-ch.Events():
		if ok {
			t.Fatalf("unexpected delivered event: %+v", event)
		}
	default:
	}
	ch.Close()
}

func TestChannelReconnectsAfterServerDrop(t *testing.T) {
	t.Parallel()

	var conns atomic.Int32
	ts := wsServer(t, func(conn *websocket.Conn) {
		n := conns.Add(1)
		if n == 1 {
			// Drop the first connection immediately to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		msg, _ := json.Marshal(Event{Type: EventFrame, Frame: "eA=="})
		_ = conn.WriteMessage(websocket.TextMessage, msg)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer ts.Close()

	ch, err := Dial(context.Background(), wsURL(ts), Options{ReconnectBackoff: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ch.Close()

	select {
	case event, ok := <-ch.Events():
		if !ok {
			t.Fatal("events channel closed before reconnect delivered a frame")
		}
		if event.Type != EventFrame {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for post-reconnect frame")
	}
	if conns.Load() < 2 {
		t.Fatalf("expected a reconnect, saw %d connections", conns.Load())
	}
}

func TestChannelCloseDoesNotReconnect(t *testing.T) {
	t.Parallel()

	var conns atomic.Int32
	ts := wsServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer ts.Close()

	ch, err := Dial(context.Background(), wsURL(ts), Options{ReconnectBackoff: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Events channel must be closed and no redial attempted.
	if _, ok := <-ch.Events(); ok {
		t.Fatal("expected closed events channel")
	}
	time.Sleep(100 * time.Millisecond)
	if got := conns.Load(); got != 1 {
		t.Fatalf("expected exactly 1 connection, got %d", got)
	}
}
