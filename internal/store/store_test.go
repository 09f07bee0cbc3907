package store

import (
	"testing"
	"time"

	"github.com/legaldoc/collabhub/internal/model"
)

func TestRecordAfterCloseIsDropped(t *testing.T) {
	s := New(nil, 1, nil)
	s.Close()

	// A session can still route an annotation into the store while the
	// process is shutting down; the event is dropped, never a panic.
	s.Record(model.AnnotationEvent{
		Action:     model.AnnotationAdded,
		DocumentID: "doc-1",
		UserID:     "A",
		OccurredAt: time.Now().UTC(),
	})

	// Close stays idempotent.
	s.Close()
}
