package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/legaldoc/collabhub/internal/model"
	"github.com/legaldoc/collabhub/internal/registry"
)

// AnnotationRecorder receives annotation events for out-of-band persistence
// or publication. Record must not block the caller.
type AnnotationRecorder interface {
	Record(ev model.AnnotationEvent)
}

// PresenceMirror mirrors live presence into an external store for
// out-of-band consumers. All calls are best-effort; errors are logged by
// the hub and never affect routing.
type PresenceMirror interface {
	Join(ctx context.Context, documentID, userID string) error
	Leave(ctx context.Context, documentID, userID string) error
	SetCursor(ctx context.Context, documentID, userID string, pos model.CursorPosition) error
}

// RouterStats contains runtime counters.
type RouterStats struct {
	Received  int64
	FannedOut int64
	Unknown   int64
}

// Router interprets one inbound event and fans it out to the sender's peers
// in the same document. It is stateless apart from counters; all shared
// state lives in the Registry.
type Router struct {
	reg       *registry.Registry
	recorders []AnnotationRecorder
	mirror    PresenceMirror
	logger    *slog.Logger
	now       func() time.Time

	received  atomic.Int64
	fannedOut atomic.Int64
	unknown   atomic.Int64
}

// NewRouter creates a Broadcast Router. recorders and mirror may be nil or
// empty; the router then relays only.
func NewRouter(reg *registry.Registry, recorders []AnnotationRecorder, mirror PresenceMirror, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		reg:       reg,
		recorders: recorders,
		mirror:    mirror,
		logger:    logger,
		now:       time.Now,
	}
}

// timestamp returns the server-assigned event time. This wall-clock stamp
// is the only ordering signal receivers get; there is no sequence counter.
func (r *Router) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

// Route handles one decoded inbound event from sender. Unrecognized kinds
// are dropped without error so unknown future event kinds never terminate
// the connection.
func (r *Router) Route(documentID, senderID string, msg ClientMessage, sender registry.Sink) {
	r.received.Add(1)
	ts := r.timestamp()

	switch msg.Type {
	case KindCursorMove:
		pos := model.CursorPosition{X: msg.X, Y: msg.Y, Page: 1}
		if msg.Page != nil && *msg.Page != 0 {
			pos.Page = *msg.Page
		}
		r.reg.UpdateCursor(documentID, senderID, pos)
		r.mirrorCursor(documentID, senderID, pos)
		r.broadcast(documentID, senderID, ServerMessage{
			Type:      KindCursorUpdate,
			UserID:    senderID,
			Position:  &pos,
			Timestamp: ts,
		})

	case KindAnnotationAdd:
		r.record(model.AnnotationEvent{
			Action:     model.AnnotationAdded,
			DocumentID: documentID,
			UserID:     senderID,
			Payload:    msg.Annotation,
			OccurredAt: r.now().UTC(),
		})
		r.broadcast(documentID, senderID, ServerMessage{
			Type:       KindAnnotationAdded,
			UserID:     senderID,
			Annotation: msg.Annotation,
			Timestamp:  ts,
		})

	case KindAnnotationUpdate:
		r.record(model.AnnotationEvent{
			Action:       model.AnnotationUpdated,
			DocumentID:   documentID,
			UserID:       senderID,
			AnnotationID: msg.AnnotationID,
			Payload:      msg.Changes,
			OccurredAt:   r.now().UTC(),
		})
		r.broadcast(documentID, senderID, ServerMessage{
			Type:         KindAnnotationUpdated,
			UserID:       senderID,
			AnnotationID: msg.AnnotationID,
			Changes:      msg.Changes,
			Timestamp:    ts,
		})

	case KindAnnotationDelete:
		r.record(model.AnnotationEvent{
			Action:       model.AnnotationDeleted,
			DocumentID:   documentID,
			UserID:       senderID,
			AnnotationID: msg.AnnotationID,
			OccurredAt:   r.now().UTC(),
		})
		r.broadcast(documentID, senderID, ServerMessage{
			Type:         KindAnnotationDeleted,
			UserID:       senderID,
			AnnotationID: msg.AnnotationID,
			Timestamp:    ts,
		})

	case KindSelection:
		r.broadcast(documentID, senderID, selectionMessage{
			Type:      KindUserSelection,
			UserID:    senderID,
			Selection: msg.Selection,
			Page:      msg.Page,
			Timestamp: ts,
		})

	case KindComment:
		r.broadcast(documentID, senderID, ServerMessage{
			Type:         KindNewComment,
			UserID:       senderID,
			Comment:      msg.Comment,
			AnnotationID: msg.AnnotationID,
			Timestamp:    ts,
		})

	case KindPing:
		// Keep-alive: answered directly, never fanned out.
		r.reply(sender, ServerMessage{Type: KindPong, Timestamp: ts})

	default:
		r.unknown.Add(1)
		r.logger.Debug("dropping unknown event kind",
			"kind", msg.Type, "document", documentID, "user", senderID)
	}
}

// broadcast delivers msg to every participant of the document except
// excludeUser. A peer whose send fails is treated as dead and deregistered;
// delivery to the remaining peers proceeds unaffected.
func (r *Router) broadcast(documentID, excludeUser string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal outbound event", "error", err)
		return
	}
	for userID, sink := range r.reg.Peers(documentID, excludeUser) {
		if err := sink.Send(data); err != nil {
			r.logger.Warn("peer send failed, deregistering",
				"document", documentID, "user", userID, "error", err)
			r.reg.Deregister(documentID, userID)
			continue
		}
		r.fannedOut.Add(1)
	}
}

// reply sends msg directly to one sink, bypassing fan-out.
func (r *Router) reply(sink registry.Sink, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal reply", "type", msg.Type, "error", err)
		return
	}
	if err := sink.Send(data); err != nil {
		r.logger.Debug("reply failed", "type", msg.Type, "error", err)
	}
}

func (r *Router) record(ev model.AnnotationEvent) {
	for _, rec := range r.recorders {
		rec.Record(ev)
	}
}

func (r *Router) mirrorCursor(documentID, userID string, pos model.CursorPosition) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.mirror.SetCursor(ctx, documentID, userID, pos); err != nil {
		r.logger.Warn("presence mirror cursor update failed",
			"document", documentID, "user", userID, "error", err)
	}
}

// ActiveParticipants proxies the Registry's participant list for
// out-of-band polling clients.
func (r *Router) ActiveParticipants(documentID string) []string {
	return r.reg.Participants(documentID)
}

// CursorSnapshot proxies the Registry's cursor snapshot for out-of-band
// polling clients.
func (r *Router) CursorSnapshot(documentID string) map[string]model.CursorPosition {
	return r.reg.Cursors(documentID)
}

// Stats returns current routing counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		Received:  r.received.Load(),
		FannedOut: r.fannedOut.Load(),
		Unknown:   r.unknown.Load(),
	}
}
