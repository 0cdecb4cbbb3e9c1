// Package push maintains the server-to-client WebSocket streams: the
// attendance camera feed and the live recording feed. One goroutine owns
// each connection's read loop and forwards decoded events over a bounded
// channel; reconnection with a fixed backoff wraps the loop and stops only
// when the closure was client-initiated.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meetingsense/console/internal/logging"
)

// Event is a decoded push-channel message.
type Event struct {
	Type            string `json:"type"`
	Frame           string `json:"frame,omitempty"`
	Message         string `json:"message,omitempty"`
	PersonCount     int    `json:"person_count,omitempty"`
	RecognizedCount int    `json:"recognized_count,omitempty"`
	InFrameCount    int    `json:"in_frame_count,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
}

const (
	EventFrame = "frame"
	EventPong  = "pong"
)

// Options tunes a channel's reconnect and heartbeat behavior.
type Options struct {
	// ReconnectBackoff is the fixed wait between reconnect attempts after an
	// unexpected closure. Defaults to 3 seconds.
	ReconnectBackoff time.Duration
	// HeartbeatInterval, when positive, sends a {"type":"ping"} liveness
	// message at that period. A missing pong is not treated as fatal; only
	// transport closure drives reconnection.
	HeartbeatInterval time.Duration
	// QueueSize bounds the delivered-event channel. Defaults to 64. Events
	// arriving while the queue is full are dropped (frames are ephemeral).
	QueueSize int
}

// Channel is one push stream with automatic reconnection.
type Channel struct {
	url  string
	opts Options

	events chan Event
	done   chan struct{}

	closeOnce sync.Once
	closed    chan struct{}

	mu   sync.Mutex
	conn *websocket.Conn
}

// URL converts an http(s) base URL and path into the ws(s) endpoint.
func URL(base, path string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	u, err := url.Parse(base + path)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Dial opens the channel. The initial connection is attempted synchronously
// so configuration mistakes surface immediately; once open, unexpected
// closures reconnect forever with the fixed backoff.
func Dial(ctx context.Context, wsURL string, opts Options) (*Channel, error) {
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = 3 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		url:    wsURL,
		opts:   opts,
		events: make(chan Event, opts.QueueSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
		conn:   conn,
	}
	go ch.run(ctx)
	return ch, nil
}

// Events delivers decoded frames and status messages. The channel closes
// after Close or when the surrounding context is cancelled.
func (c *Channel) Events() <-chan Event { return c.events }

// Close tears the channel down. A closure initiated here never reconnects.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	})
	<-c.done
	return nil
}

func (c *Channel) closing() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			c.serve(ctx, conn)
		}
		if c.closing() || ctx.Err() != nil {
			return
		}

		logging.Infow("push channel lost, reconnecting", "url", c.url, "backoff_ms", c.opts.ReconnectBackoff.Milliseconds())
		select {
		case <-time.After(c.opts.ReconnectBackoff):
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			logging.Debugw("push channel redial failed", "url", c.url, "err", err)
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			continue
		}
		c.mu.Lock()
		if c.closing() {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()
	}
}

// serve reads one connection until it drops, emitting decoded events and
// sending heartbeat pings if configured.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	stopBeat := make(chan struct{})
	if c.opts.HeartbeatInterval > 0 {
		go c.heartbeat(conn, stopBeat)
	}
	defer close(stopBeat)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !c.closing() && !isExpectedClose(err) {
				logging.Debugw("push channel read error", "url", c.url, "err", err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		if event.Type == EventPong {
			// Heartbeat acknowledgment. Not tracked against a timeout;
			// reconnection is driven by transport closure only.
			continue
		}

		select {
		case c.events <- event:
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		default:
			// Queue full: drop the frame, a newer one is on the way.
		}
	}
}

func (c *Channel) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	ping := []byte(`{"type":"ping"}`)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, ping)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func isExpectedClose(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
