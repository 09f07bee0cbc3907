package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// GatewayConfig holds per-connection settings.
type GatewayConfig struct {
	// SendQueueSize is the capacity of each connection's outbound queue.
	SendQueueSize int

	// IdleTimeout is a hardening measure: the read deadline is pushed out
	// by this much on every inbound frame. Zero disables it, matching the
	// original contract where a silent connection is only cleaned up when
	// its transport reports closure.
	IdleTimeout time.Duration
}

// Gateway owns the lifecycle of one physical connection: register, initial
// snapshot, join notification, receive loop, deregister, leave notification.
type Gateway struct {
	router *Router
	cfg    GatewayConfig
	logger *slog.Logger
}

// NewGateway creates a Session Gateway bound to a router.
func NewGateway(router *Router, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{router: router, cfg: cfg, logger: logger}
}

// HandleConnection runs the session for an already-upgraded WebSocket
// connection and blocks until it terminates. Any termination reason (client
// close, transport error, malformed frame) follows the same teardown path:
// deregister, then broadcast user_left to the remaining participants.
func (g *Gateway) HandleConnection(ctx context.Context, ws *websocket.Conn, documentID, userID string) {
	conn := newConn(ws, documentID, userID, g.cfg.SendQueueSize, g.logger)
	reg := g.router.reg

	reg.Register(documentID, userID, conn)
	go conn.writeLoop()

	// Close the socket if the handler context is ever canceled; this
	// unblocks the receive loop below.
	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	g.mirrorJoin(documentID, userID)
	g.logger.Info("participant connected",
		"conn", conn.id, "document", documentID, "user", userID)

	// Initial snapshot lets a late joiner reconstruct presence without
	// racing the broadcast stream. The roster includes the joiner itself.
	ts := g.router.timestamp()
	g.sendDirect(conn, ServerMessage{
		Type:        KindInit,
		ActiveUsers: reg.Participants(documentID),
		Cursors:     reg.Cursors(documentID),
		Timestamp:   ts,
	})

	g.router.broadcast(documentID, userID, ServerMessage{
		Type:        KindUserJoined,
		UserID:      userID,
		ActiveUsers: reg.Participants(documentID),
		Timestamp:   ts,
	})

	g.readLoop(conn)

	reg.Deregister(documentID, userID)
	conn.Close()
	g.mirrorLeave(documentID, userID)
	g.logger.Info("participant disconnected",
		"conn", conn.id, "document", documentID, "user", userID)

	g.router.broadcast(documentID, "", ServerMessage{
		Type:        KindUserLeft,
		UserID:      userID,
		ActiveUsers: reg.Participants(documentID),
		Timestamp:   g.router.timestamp(),
	})
}

// readLoop receives inbound frames until the connection dies. A frame that
// fails to decode is a protocol violation: it terminates this connection
// only and never touches the rest of the document channel.
func (g *Gateway) readLoop(conn *Conn) {
	for {
		if g.cfg.IdleTimeout > 0 {
			_ = conn.ws.SetReadDeadline(time.Now().Add(g.cfg.IdleTimeout))
		}
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				g.logger.Debug("read failed",
					"conn", conn.id, "document", conn.documentID, "user", conn.userID, "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.logger.Warn("malformed frame, closing connection",
				"conn", conn.id, "document", conn.documentID, "user", conn.userID, "error", err)
			return
		}

		g.router.Route(conn.documentID, conn.userID, msg, conn)
	}
}

// sendDirect marshals and delivers a message to one connection, bypassing
// fan-out.
func (g *Gateway) sendDirect(conn *Conn, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error("marshal init message", "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		g.logger.Debug("init send failed", "conn", conn.id, "user", conn.userID, "error", err)
	}
}

func (g *Gateway) mirrorJoin(documentID, userID string) {
	if g.router.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.router.mirror.Join(ctx, documentID, userID); err != nil {
		g.logger.Warn("presence mirror join failed",
			"document", documentID, "user", userID, "error", err)
	}
}

func (g *Gateway) mirrorLeave(documentID, userID string) {
	if g.router.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.router.mirror.Leave(ctx, documentID, userID); err != nil {
		g.logger.Warn("presence mirror leave failed",
			"document", documentID, "user", userID, "error", err)
	}
}
