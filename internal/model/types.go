package model

import (
	"encoding/json"
	"time"
)

// -----------------------------------------------------------------------------
// Presence Types
// -----------------------------------------------------------------------------

// CursorPosition is a participant's last reported pointer position within a
// document. Coordinates are in client-side document space; the hub never
// interprets them.
type CursorPosition struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Page int     `json:"page"`
}

// DefaultCursor is the position assigned to a participant at connect time,
// before their first cursor_move.
func DefaultCursor() CursorPosition {
	return CursorPosition{X: 0, Y: 0, Page: 1}
}

// -----------------------------------------------------------------------------
// Annotation Types
// -----------------------------------------------------------------------------

// Annotation actions as relayed through the hub.
const (
	AnnotationAdded   = "added"
	AnnotationUpdated = "updated"
	AnnotationDeleted = "deleted"
)

// AnnotationEvent describes one annotation mutation observed by the hub.
// Payload carries the annotation body (for "added") or the change set (for
// "updated") exactly as the client sent it; content is opaque to the hub and
// validated only by downstream consumers.
type AnnotationEvent struct {
	Action       string          `json:"action"`
	DocumentID   string          `json:"document_id"`
	UserID       string          `json:"user_id"`
	AnnotationID string          `json:"annotation_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
