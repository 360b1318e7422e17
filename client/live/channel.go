// Package live maintains the dashboard's WebSocket feed: one read
// loop with automatic reconnect, delivering typed events to the
// coordinator.
package live

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// reconnectDelay is the fixed pause between dial attempts. The server
// pushes full snapshots after connect, so missed events during an
// outage are recovered by the initial refetch, not by replay.
const reconnectDelay = 3 * time.Second

// Event is one decoded push from the server.
type Event struct {
	Type    string
	Payload json.RawMessage
}

// Source is the feed abstraction the coordinator consumes. Tests
// substitute a deterministic fake.
type Source interface {
	Events() <-chan Event
	Run(ctx context.Context)
}

// Channel is the gorilla/websocket implementation of Source.
type Channel struct {
	url    string
	dialer *websocket.Dialer
	events chan Event
	logger *zap.Logger
}

// New creates a Channel. url is the full WS endpoint including the
// token query parameter, e.g. "ws://host:8000/ws?token=...".
func New(url string, logger *zap.Logger) *Channel {
	return &Channel{
		url:    url,
		dialer: websocket.DefaultDialer,
		events: make(chan Event, 256),
		logger: logger,
	}
}

// Events returns the delivery channel. Closed when Run returns.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Run dials and reads until ctx is cancelled, reconnecting after a
// fixed delay on any failure.
func (c *Channel) Run(ctx context.Context) {
	defer close(c.events)
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Warn("ws dial failed, retrying", zap.Error(err))
			if !c.sleep(ctx) {
				return
			}
			continue
		}
		c.logger.Info("ws connected")
		c.readLoop(ctx, conn)
		conn.Close()
		if !c.sleep(ctx) {
			return
		}
	}
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("ws read failed", zap.Error(err))
			}
			return
		}

		var pkt struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(raw, &pkt); err != nil || pkt.Type == "" {
			c.logger.Warn("malformed push, ignoring")
			continue
		}

		select {
		case c.events <- Event{Type: pkt.Type, Payload: pkt.Payload}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) sleep(ctx context.Context) bool {
	select {
	case <-time.After(reconnectDelay):
		return true
	case <-ctx.Done():
		return false
	}
}
