package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/apexsim/raceline/internal/cache"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection is the transport under the publisher: one outbound
// websocket to the viewer, a single write goroutine draining sendCh,
// and a read goroutine routing acks. Frame sends never block; a full
// send channel drops the frame and bumps the counter instead.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	ackCh  chan AckMessage
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL  string
	secret string

	// Hello is replayed after a reconnect so the viewer re-learns the
	// session before the next frame arrives.
	cachedHello []byte

	dropped cache.SafeCounter

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// dial connects to the viewer and starts the pump goroutines.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.setConn(conn)

	go c.writeLoop()
	go c.readLoop()
	return nil
}

// dialOnce performs one dial with the shared secret as a query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) setConn(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *connection) currentConn() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// writeFrame writes one text message under the write deadline.
func writeFrame(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop drains sendCh onto the socket. At most one runs at a time;
// it exits on shutdown or on the first write error, which hands off to
// reconnect.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			conn := c.currentConn()
			if conn == nil {
				continue
			}
			if err := writeFrame(conn, data); err != nil {
				c.logger.Warn("Viewer write failed", "error", err)
				go c.reconnect()
				return
			}
		}
	}
}

// readLoop routes viewer acks onto ackCh. Anything that is not an ack
// is logged at debug and ignored.
func (c *connection) readLoop() {
	for {
		conn := c.currentConn()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("Viewer read failed", "error", err)
			go c.reconnect()
			return
		}

		var ack AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Non-ack message from viewer", "raw", string(message))
			continue
		}

		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect re-dials with exponential backoff, replays the cached hello
// and restarts the pumps. Gives up after maxReconnect attempts; frames
// sent meanwhile are dropped by send.
func (c *connection) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		c.logger.Info("Reconnecting to viewer", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		cached := c.cachedHello
		c.mu.Unlock()

		if cached != nil {
			if err := writeFrame(conn, cached); err != nil {
				c.logger.Warn("Hello replay failed after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.logger.Info("Viewer reconnected", "attempt", attempt)
		go c.writeLoop()
		go c.readLoop()
		return
	}

	c.logger.Error("Gave up reconnecting to viewer", "maxAttempts", maxReconnect)
}

// send queues data for the write loop, dropping when the queue is full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.dropped.Inc()
		c.logger.Warn("Viewer send queue full, dropping message")
	}
}

// sendAndWait queues data and blocks until the viewer acks it or the
// timeout expires. Used for the hello/goodbye handshake only; frames
// are fire-and-forget.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops the pumps. Safe to call twice.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
		return conn.Close()
	}
	return nil
}
