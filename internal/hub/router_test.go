package hub

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/legaldoc/collabhub/internal/model"
	"github.com/legaldoc/collabhub/internal/registry"
)

// captureSink records every frame delivered to it.
type captureSink struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (s *captureSink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("peer gone")
	}
	s.frames = append(s.frames, append([]byte(nil), data...))
	return nil
}

func (s *captureSink) messages(t *testing.T) []ServerMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]ServerMessage, len(s.frames))
	for i, data := range s.frames {
		if err := json.Unmarshal(data, &msgs[i]); err != nil {
			t.Fatalf("unmarshal frame %d: %v", i, err)
		}
	}
	return msgs
}

type captureRecorder struct {
	mu     sync.Mutex
	events []model.AnnotationEvent
}

func (c *captureRecorder) Record(ev model.AnnotationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func newTestRouter(recorders ...AnnotationRecorder) (*Router, *registry.Registry) {
	reg := registry.New(0)
	return NewRouter(reg, recorders, nil, nil), reg
}

func intp(v int) *int { return &v }

func TestRouteCursorMove(t *testing.T) {
	r, reg := newTestRouter()
	a, b := &captureSink{}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)

	r.Route("doc-1", "A", ClientMessage{Type: KindCursorMove, X: 10, Y: 20, Page: intp(1)}, a)

	msgs := b.messages(t)
	if len(msgs) != 1 {
		t.Fatalf("B received %d messages, want 1", len(msgs))
	}
	got := msgs[0]
	if got.Type != KindCursorUpdate {
		t.Errorf("Type = %q, want %q", got.Type, KindCursorUpdate)
	}
	if got.UserID != "A" {
		t.Errorf("UserID = %q, want A", got.UserID)
	}
	if got.Position == nil || *got.Position != (model.CursorPosition{X: 10, Y: 20, Page: 1}) {
		t.Errorf("Position = %+v, want {10 20 1}", got.Position)
	}
	if got.Timestamp == "" {
		t.Error("Timestamp not assigned")
	}

	// Sender never receives an echo.
	if msgs := a.messages(t); len(msgs) != 0 {
		t.Errorf("A received %d messages, want 0", len(msgs))
	}

	// Registry reflects the new position; B keeps the default.
	cursors := reg.Cursors("doc-1")
	if cursors["A"] != (model.CursorPosition{X: 10, Y: 20, Page: 1}) {
		t.Errorf("cursor A = %+v, want {10 20 1}", cursors["A"])
	}
	if cursors["B"] != model.DefaultCursor() {
		t.Errorf("cursor B = %+v, want default", cursors["B"])
	}
}

func TestRouteCursorMovePageDefaultsToOne(t *testing.T) {
	r, reg := newTestRouter()
	a := &captureSink{}
	reg.Register("doc-1", "A", a)

	r.Route("doc-1", "A", ClientMessage{Type: KindCursorMove, X: 1, Y: 2}, a)

	if got := reg.Cursors("doc-1")["A"].Page; got != 1 {
		t.Errorf("Page = %d, want 1", got)
	}
}

func TestRoutePingRepliesOnlyToSender(t *testing.T) {
	r, reg := newTestRouter()
	a, b := &captureSink{}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)

	r.Route("doc-1", "A", ClientMessage{Type: KindPing}, a)

	msgs := a.messages(t)
	if len(msgs) != 1 || msgs[0].Type != KindPong {
		t.Fatalf("A received %v, want single pong", msgs)
	}
	if msgs[0].Timestamp == "" {
		t.Error("pong Timestamp not assigned")
	}
	if msgs := b.messages(t); len(msgs) != 0 {
		t.Errorf("B received %d messages, want 0 (ping is not broadcast)", len(msgs))
	}
}

func TestRouteUnknownKindDropped(t *testing.T) {
	r, reg := newTestRouter()
	a, b := &captureSink{}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)

	r.Route("doc-1", "A", ClientMessage{Type: "bogus_kind"}, a)

	if msgs := b.messages(t); len(msgs) != 0 {
		t.Errorf("B received %d messages, want 0", len(msgs))
	}
	if msgs := a.messages(t); len(msgs) != 0 {
		t.Errorf("A received %d messages, want 0 (no error raised to sender)", len(msgs))
	}
	if stats := r.Stats(); stats.Unknown != 1 {
		t.Errorf("Stats.Unknown = %d, want 1", stats.Unknown)
	}
}

func TestRouteAnnotationEvents(t *testing.T) {
	rec := &captureRecorder{}
	r, reg := newTestRouter(rec)
	a, b := &captureSink{}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)

	body := json.RawMessage(`{"kind":"highlight","rect":[1,2,3,4]}`)
	changes := json.RawMessage(`{"color":"red"}`)

	r.Route("doc-1", "A", ClientMessage{Type: KindAnnotationAdd, Annotation: body}, a)
	r.Route("doc-1", "A", ClientMessage{Type: KindAnnotationUpdate, AnnotationID: "ann-1", Changes: changes}, a)
	r.Route("doc-1", "A", ClientMessage{Type: KindAnnotationDelete, AnnotationID: "ann-1"}, a)

	msgs := b.messages(t)
	if len(msgs) != 3 {
		t.Fatalf("B received %d messages, want 3", len(msgs))
	}
	if msgs[0].Type != KindAnnotationAdded || string(msgs[0].Annotation) != string(body) {
		t.Errorf("first = %q/%s, want annotation_added with verbatim body", msgs[0].Type, msgs[0].Annotation)
	}
	if msgs[1].Type != KindAnnotationUpdated || msgs[1].AnnotationID != "ann-1" || string(msgs[1].Changes) != string(changes) {
		t.Errorf("second = %+v, want annotation_updated for ann-1", msgs[1])
	}
	if msgs[2].Type != KindAnnotationDeleted || msgs[2].AnnotationID != "ann-1" {
		t.Errorf("third = %+v, want annotation_deleted for ann-1", msgs[2])
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 3 {
		t.Fatalf("recorder got %d events, want 3", len(rec.events))
	}
	wantActions := []string{model.AnnotationAdded, model.AnnotationUpdated, model.AnnotationDeleted}
	for i, ev := range rec.events {
		if ev.Action != wantActions[i] {
			t.Errorf("event %d action = %q, want %q", i, ev.Action, wantActions[i])
		}
		if ev.DocumentID != "doc-1" || ev.UserID != "A" {
			t.Errorf("event %d = %+v, want doc-1/A", i, ev)
		}
	}
}

func TestRouteSelectionAndComment(t *testing.T) {
	r, reg := newTestRouter()
	a, b := &captureSink{}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)

	sel := json.RawMessage(`{"start":5,"end":42}`)
	comment := json.RawMessage(`"looks wrong to me"`)

	r.Route("doc-1", "A", ClientMessage{Type: KindSelection, Selection: sel, Page: intp(2)}, a)
	r.Route("doc-1", "A", ClientMessage{Type: KindComment, Comment: comment, AnnotationID: "ann-9"}, a)

	msgs := b.messages(t)
	if len(msgs) != 2 {
		t.Fatalf("B received %d messages, want 2", len(msgs))
	}
	if msgs[0].Type != KindUserSelection || string(msgs[0].Selection) != string(sel) || msgs[0].Page != 2 {
		t.Errorf("selection fan-out = %+v", msgs[0])
	}
	if msgs[1].Type != KindNewComment || string(msgs[1].Comment) != string(comment) || msgs[1].AnnotationID != "ann-9" {
		t.Errorf("comment fan-out = %+v", msgs[1])
	}
}

func TestSelectionAlwaysCarriesPageKey(t *testing.T) {
	r, reg := newTestRouter()
	a, b := &captureSink{}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)

	// No page supplied: the key still reaches receivers, as null.
	r.Route("doc-1", "A", ClientMessage{Type: KindSelection, Selection: json.RawMessage(`{"start":1,"end":2}`)}, a)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) != 1 {
		t.Fatalf("B received %d frames, want 1", len(b.frames))
	}
	frame := string(b.frames[0])
	if !strings.Contains(frame, `"page":null`) {
		t.Errorf("selection frame = %s, want explicit page key with null", frame)
	}
}

func TestFailingPeerIsDeregistered(t *testing.T) {
	r, reg := newTestRouter()
	a, b, c := &captureSink{}, &captureSink{fail: true}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)
	reg.Register("doc-1", "C", c)

	r.Route("doc-1", "A", ClientMessage{Type: KindCursorMove, X: 1, Y: 1, Page: intp(1)}, a)

	// The dead peer is removed; delivery to the rest proceeded.
	users := reg.Participants("doc-1")
	if len(users) != 2 || users[0] != "A" || users[1] != "C" {
		t.Errorf("Participants = %v, want [A C]", users)
	}
	if msgs := c.messages(t); len(msgs) != 1 {
		t.Errorf("C received %d messages, want 1", len(msgs))
	}
}

func TestTimestampIsServerAssigned(t *testing.T) {
	r, reg := newTestRouter()
	a, b := &captureSink{}, &captureSink{}
	reg.Register("doc-1", "A", a)
	reg.Register("doc-1", "B", b)

	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.Route("doc-1", "A", ClientMessage{Type: KindCursorMove, X: 1, Y: 1, Page: intp(1)}, a)

	msgs := b.messages(t)
	if len(msgs) != 1 {
		t.Fatalf("B received %d messages, want 1", len(msgs))
	}
	if want := fixed.Format(time.RFC3339Nano); msgs[0].Timestamp != want {
		t.Errorf("Timestamp = %q, want %q", msgs[0].Timestamp, want)
	}
}
