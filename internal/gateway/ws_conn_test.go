package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialPair(t *testing.T, server func(*websocket.Conn)) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		server(ws)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + srv.URL[4:]
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestClientConnEmitWritesEvent(t *testing.T) {
	received := make(chan ServerEvent, 1)

	ws := dialPair(t, func(server *websocket.Conn) {
		_, data, err := server.ReadMessage()
		if err != nil {
			return
		}
		var event ServerEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return
		}
		received <- event
	})

	conn := NewClientConn(ws, "user_1", testLogger())
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.writePump(ctx)

	conn.Emit("turn_state", map[string]bool{"micEnabled": true})

	select {
	case event := <-received:
		if event.Type != "turn_state" {
			t.Errorf("expected turn_state event, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("server never received the event")
	}
}

func TestClientConnEmitAfterCloseIsNoop(t *testing.T) {
	ws := dialPair(t, func(server *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})

	conn := NewClientConn(ws, "user_1", testLogger())
	conn.Close()

	// Must not panic on the closed send channel.
	conn.Emit("turn_state", nil)
	conn.Emit("error", nil)
}

func TestClientConnReadPumpDispatchesEventsAndAudio(t *testing.T) {
	ws := dialPair(t, func(server *websocket.Conn) {
		event, _ := json.Marshal(ClientEvent{Type: ClientMicPressed})
		if err := server.WriteMessage(websocket.TextMessage, event); err != nil {
			return
		}
		if err := server.WriteMessage(websocket.BinaryMessage, make([]byte, 320)); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
		server.Close()
	})

	conn := NewClientConn(ws, "user_1", testLogger())

	var mu sync.Mutex
	var events []string
	var audioBytes int

	conn.readPump(context.Background(), func(event ClientEvent) {
		mu.Lock()
		events = append(events, event.Type)
		mu.Unlock()
	}, func(frame []byte) {
		mu.Lock()
		audioBytes += len(frame)
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0] != ClientMicPressed {
		t.Errorf("expected one mic_pressed event, got %v", events)
	}
	if audioBytes != 320 {
		t.Errorf("expected 320 audio bytes, got %d", audioBytes)
	}
}

func TestClientConnCloseIsIdempotent(t *testing.T) {
	ws := dialPair(t, func(server *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})

	conn := NewClientConn(ws, "user_1", testLogger())
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestGenerateViewerToken(t *testing.T) {
	svc := NewTokenService("devkey", "devsecret_devsecret_devsecret_32", "wss://livekit.example.com")

	token, err := svc.GenerateViewerToken("user_1", "room_abc")
	if err != nil {
		t.Fatalf("GenerateViewerToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if svc.URL() != "wss://livekit.example.com" {
		t.Errorf("unexpected url %s", svc.URL())
	}
}
