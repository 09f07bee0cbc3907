package hub

import (
	"encoding/json"

	"github.com/legaldoc/collabhub/internal/model"
)

// Inbound event kinds.
const (
	KindCursorMove       = "cursor_move"
	KindAnnotationAdd    = "annotation_add"
	KindAnnotationUpdate = "annotation_update"
	KindAnnotationDelete = "annotation_delete"
	KindSelection        = "selection"
	KindComment          = "comment"
	KindPing             = "ping"
)

// Outbound event kinds.
const (
	KindInit              = "init"
	KindUserJoined        = "user_joined"
	KindUserLeft          = "user_left"
	KindCursorUpdate      = "cursor_update"
	KindAnnotationAdded   = "annotation_added"
	KindAnnotationUpdated = "annotation_updated"
	KindAnnotationDeleted = "annotation_deleted"
	KindUserSelection     = "user_selection"
	KindNewComment        = "new_comment"
	KindPong              = "pong"
)

// ClientMessage is one inbound frame. Only Type is interpreted; the
// kind-specific fields are relayed verbatim. Content-level validation of
// annotation bodies, selection ranges, and comments belongs to downstream
// consumers, not the hub.
type ClientMessage struct {
	Type         string          `json:"type"`
	X            float64         `json:"x,omitempty"`
	Y            float64         `json:"y,omitempty"`
	Page         *int            `json:"page,omitempty"`
	Annotation   json.RawMessage `json:"annotation,omitempty"`
	AnnotationID string          `json:"annotation_id,omitempty"`
	Changes      json.RawMessage `json:"changes,omitempty"`
	Selection    json.RawMessage `json:"selection,omitempty"`
	Comment      json.RawMessage `json:"comment,omitempty"`
}

// ServerMessage is one outbound frame. Timestamp is always server-assigned
// at the moment of routing; it is the only ordering signal receivers get.
type ServerMessage struct {
	Type         string                          `json:"type"`
	Timestamp    string                          `json:"timestamp"`
	UserID       string                          `json:"user_id,omitempty"`
	ActiveUsers  []string                        `json:"active_users,omitempty"`
	Cursors      map[string]model.CursorPosition `json:"cursors,omitempty"`
	Position     *model.CursorPosition           `json:"position,omitempty"`
	Annotation   json.RawMessage                 `json:"annotation,omitempty"`
	AnnotationID string                          `json:"annotation_id,omitempty"`
	Changes      json.RawMessage                 `json:"changes,omitempty"`
	Selection    json.RawMessage                 `json:"selection,omitempty"`
	Page         int                             `json:"page,omitempty"`
	Comment      json.RawMessage                 `json:"comment,omitempty"`
}

// selectionMessage is the user_selection fan-out shape. Page is a pointer
// without omitempty so the key is always on the wire, null when the client
// did not send one.
type selectionMessage struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	UserID    string          `json:"user_id"`
	Selection json.RawMessage `json:"selection,omitempty"`
	Page      *int            `json:"page"`
}
