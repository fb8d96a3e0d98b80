package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ClientConn is one mobile client's websocket. Text frames carry JSON
// events in both directions; binary frames carry recorded audio inbound.
// It implements conversation.Emitter.
type ClientConn struct {
	ws     *websocket.Conn
	userID string
	logger *slog.Logger
	send   chan ServerEvent
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewClientConn(ws *websocket.Conn, userID string, logger *slog.Logger) *ClientConn {
	return &ClientConn{
		ws:     ws,
		userID: userID,
		logger: logger.With("user_id", userID),
		send:   make(chan ServerEvent, 128),
		done:   make(chan struct{}),
	}
}

func (c *ClientConn) UserID() string {
	return c.userID
}

// Emit queues a server event for delivery. A full buffer drops the event
// rather than blocking the orchestrator.
func (c *ClientConn) Emit(event string, payload any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- ServerEvent{Type: event, Data: payload}:
	default:
		c.logger.Warn("send buffer full, dropping event", "event", event)
	}
}

func (c *ClientConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	close(c.send)
	return c.ws.Close()
}

// readPump delivers inbound frames until the connection drops. onEvent
// receives decoded JSON events, onAudio raw binary frames.
func (c *ClientConn) readPump(ctx context.Context, onEvent func(ClientEvent), onAudio func([]byte)) {
	defer func() {
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}

		if messageType == websocket.BinaryMessage {
			onAudio(message)
			continue
		}

		var event ClientEvent
		if err := json.Unmarshal(message, &event); err != nil {
			c.logger.Error("failed to unmarshal client event", "error", err)
			continue
		}
		onEvent(event)
	}
}

func (c *ClientConn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				c.logger.Error("failed to marshal server event", "error", err)
				continue
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
