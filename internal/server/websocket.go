package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Message is the envelope every stream value is sent in
type Message struct {
	Type      string    `json:"type"`
	ConnID    string    `json:"conn_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type wsConnection struct {
	conn      *websocket.Conn
	id        string
	send      chan []byte
	cancel    context.CancelFunc
	server    *Server
	closeOnce sync.Once
}

// serveStream upgrades the request and forwards every value from the stream
// opened by open until either side goes away
func serveStream[T any](s *Server, w http.ResponseWriter, r *http.Request, kind string, open func(context.Context) (<-chan T, error)) {
	// The request context ends with the handler, the socket outlives it
	ctx, cancel := context.WithCancel(context.Background())

	values, err := open(ctx)
	if err != nil {
		cancel()
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		s.log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := &wsConnection{
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan []byte, 16),
		cancel: cancel,
		server: s,
	}

	s.log.Debug("WebSocket subscriber connected", "connID", c.id, "stream", kind)

	go c.writePump()
	go c.readPump()
	go forwardLoop(ctx, c, kind, values)
}

func forwardLoop[T any](ctx context.Context, c *wsConnection, kind string, values <-chan T) {
	defer close(c.send)

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-values:
			if !ok {
				return
			}
			data, err := json.Marshal(Message{
				Type:      kind,
				ConnID:    c.id,
				Timestamp: time.Now().UTC(),
				Payload:   v,
			})
			if err != nil {
				c.server.log.Error("Failed to marshal message", "error", err, "connID", c.id)
				continue
			}
			select {
			case c.send <- data:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *wsConnection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
		c.server.log.Debug("WebSocket subscriber disconnected", "connID", c.id)
	})
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConnection) readPump() {
	defer c.close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Error("WebSocket read error", "error", err, "connID", c.id)
			}
			return
		}
	}
}
