package hub

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned by Send once the connection has been torn down.
var ErrConnClosed = errors.New("hub: connection closed")

// Conn wraps one physical WebSocket connection. Outbound frames go through
// a bounded queue drained by a single writer goroutine, so one slow peer
// never stalls fan-out to the rest of the channel. A full queue drops the
// frame (delivery is best-effort); only a dead connection surfaces an error.
type Conn struct {
	id         string // per-physical-connection id, for log correlation only
	documentID string
	userID     string

	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger *slog.Logger

	dropped atomic.Int64

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, documentID, userID string, queueSize int, logger *slog.Logger) *Conn {
	if queueSize <= 0 {
		queueSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		id:         uuid.NewString(),
		documentID: documentID,
		userID:     userID,
		ws:         ws,
		send:       make(chan []byte, queueSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Send enqueues a frame for delivery. It never blocks: a full queue drops
// the frame, a closed connection returns ErrConnClosed so the caller can
// treat the peer as dead.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		if n := c.dropped.Add(1); n == 1 || n%100 == 0 {
			c.logger.Warn("outbound queue full, dropping frame",
				"conn", c.id, "document", c.documentID, "user", c.userID, "dropped", n)
		}
		return nil
	}
}

// Close tears the connection down exactly once. Closing unblocks both the
// writer goroutine and any pending read.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	_ = c.ws.Close()
}

// writeLoop drains the send queue onto the wire. A write error marks the
// peer dead and stops delivery; the read side notices via the closed socket.
func (c *Conn) writeLoop() {
	for {
		select {
		case data := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed",
					"conn", c.id, "document", c.documentID, "user", c.userID, "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
