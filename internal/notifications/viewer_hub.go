package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dreamio/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerStream = 5000
	maxTotalConns     = 10000

	counterTimeout = 5 * time.Second
)

var (
	// ErrServerFull is returned when the process holds maxTotalConns sockets.
	ErrServerFull = errors.New("server connection limit reached")
	// ErrStreamFull is returned when one stream holds maxConnsPerStream sockets.
	ErrStreamFull = errors.New("stream viewer limit reached")
	// ErrHubClosed is returned by Join after Shutdown.
	ErrHubClosed = errors.New("viewer hub is shutting down")
)

// ViewerCounter persists the viewer count of a stream and returns the new value.
type ViewerCounter interface {
	IncrementViewerCount(ctx context.Context, id uint) (int, error)
	DecrementViewerCount(ctx context.Context, id uint) (int, error)
}

// ViewerMessage is pushed to a stream room whenever its viewer count changes.
type ViewerMessage struct {
	Type     string `json:"type"`
	StreamID uint   `json:"streamId"`
	Count    int    `json:"count"`
}

// ViewerHub maps a stream id to the sockets watching it.
type ViewerHub struct {
	mu         sync.RWMutex
	rooms      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool

	counter  ViewerCounter
	notifier *Notifier
}

// NewViewerHub creates a hub that keeps counter in sync with open sockets.
func NewViewerHub(counter ViewerCounter, notifier *Notifier) *ViewerHub {
	return &ViewerHub{
		rooms:    make(map[uint]map[*Client]struct{}),
		counter:  counter,
		notifier: notifier,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *ViewerHub) Name() string { return "viewer hub" }

// Join registers conn as a viewer of streamID and announces the new count.
func (h *ViewerHub) Join(ctx context.Context, streamID, userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	room, ok := h.rooms[streamID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[streamID] = room
	}
	if len(room) >= maxConnsPerStream {
		h.mu.Unlock()
		return nil, ErrStreamFull
	}

	client := NewClient(h, conn, streamID, userID)
	room[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	middleware.ActiveWebSockets.Inc()

	count, err := h.counter.IncrementViewerCount(ctx, streamID)
	if err != nil {
		h.remove(client)
		return nil, err
	}
	h.announce(ctx, streamID, count)

	middleware.Logger.InfoContext(ctx, "viewer joined",
		slog.Uint64("stream_id", uint64(streamID)),
		slog.Uint64("user_id", uint64(userID)),
		slog.Int("viewers", count))
	return client, nil
}

// UnregisterClient removes a viewer and announces the new count. Safe to call twice.
func (h *ViewerHub) UnregisterClient(client *Client) {
	if !h.remove(client) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), counterTimeout)
	defer cancel()

	count, err := h.counter.DecrementViewerCount(ctx, client.StreamID)
	if err != nil {
		middleware.Logger.Warn("failed to decrement viewer count",
			slog.Uint64("stream_id", uint64(client.StreamID)),
			slog.String("error", err.Error()))
		return
	}
	h.announce(ctx, client.StreamID, count)
}

func (h *ViewerHub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.StreamID]
	if !ok {
		return false
	}
	if _, exists := room[client]; !exists {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.StreamID)
	}
	h.totalConns--
	close(client.Send)
	middleware.ActiveWebSockets.Dec()
	return true
}

// announce publishes the count through Redis when available, otherwise to local sockets only.
func (h *ViewerHub) announce(ctx context.Context, streamID uint, count int) {
	payload, err := json.Marshal(ViewerMessage{Type: "viewers", StreamID: streamID, Count: count})
	if err != nil {
		return
	}
	if h.notifier.Enabled() {
		if err := h.notifier.PublishStream(ctx, streamID, string(payload)); err == nil {
			return
		}
		middleware.Logger.Warn("viewer publish failed, delivering locally",
			slog.Uint64("stream_id", uint64(streamID)))
	}
	h.Broadcast(streamID, payload)
}

// Broadcast sends message to every local socket watching streamID.
func (h *ViewerHub) Broadcast(streamID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[streamID] {
		c.TrySend(message)
	}
}

// StartWiring delivers messages published by any instance to the local rooms.
func (h *ViewerHub) StartWiring(ctx context.Context) error {
	return h.notifier.StartStreamSubscriber(ctx, func(streamID uint, payload string) {
		h.Broadcast(streamID, []byte(payload))
	})
}

// RoomSize returns the number of local sockets watching streamID.
func (h *ViewerHub) RoomSize(streamID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[streamID])
}

// Shutdown closes every socket. Viewer counts are released as the read pumps exit.
func (h *ViewerHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var conns []*websocket.Conn
	for _, room := range h.rooms {
		for client := range room {
			if client.Conn != nil {
				conns = append(conns, client.Conn)
			}
		}
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			middleware.Logger.Debug("failed to write close message", slog.String("error", err.Error()))
		}
		_ = conn.Close()
	}
	return nil
}
