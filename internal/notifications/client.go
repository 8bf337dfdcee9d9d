// Package notifications fans live-stream viewer events out over websockets.
package notifications

import (
	"log/slog"
	"time"

	"dreamio/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Viewers only send control frames and small chat pings.
	maxMessageSize = 4096

	sendBuffer = 64
)

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is a middleman between one viewer socket and the hub.
type Client struct {
	Hub WSHub

	// Conn is nil in tests.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	// StreamID is the room the client joined.
	StreamID uint

	// UserID is zero for anonymous viewers.
	UserID uint

	// IncomingHandler receives text frames read from the peer.
	IncomingHandler func(*Client, []byte)
}

// NewClient creates a client for the given stream room.
func NewClient(hub WSHub, conn *websocket.Conn, streamID, userID uint) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		StreamID: streamID,
		UserID:   userID,
		Send:     make(chan []byte, sendBuffer),
	}
}

// ReadPump reads from the socket until it closes, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("viewer socket read failed",
					slog.Uint64("stream_id", uint64(c.StreamID)),
					slog.Uint64("user_id", uint64(c.UserID)),
					slog.String("error", err.Error()))
			}
			break
		}

		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump writes queued messages and keepalive pings to the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. Messages to slow or closed clients are dropped.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			middleware.WebSocketDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		middleware.WebSocketDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Debug("viewer buffer full, dropped message",
			slog.Uint64("stream_id", uint64(c.StreamID)),
			slog.Uint64("user_id", uint64(c.UserID)))
	}
}
