package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legaldoc/collabhub/internal/model"
)

const insertTimeout = 5 * time.Second

// Store persists annotation events to Postgres without blocking callers.
// Record enqueues onto a bounded queue drained by a single worker; when the
// queue is full the event is dropped and logged, so persistence latency can
// never stall event fan-out.
type Store struct {
	pool   *pgxpool.Pool
	queue  chan model.AnnotationEvent
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Store and starts its writer goroutine.
func New(pool *pgxpool.Pool, queueSize int, logger *slog.Logger) *Store {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		pool:   pool,
		queue:  make(chan model.AnnotationEvent, queueSize),
		logger: logger,
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s
}

// Record enqueues an annotation event for persistence. Never blocks. A
// Record that races Close during shutdown drops the event; the read lock
// keeps the enqueue and the queue close from overlapping.
func (s *Store) Record(ev model.AnnotationEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("annotation store closed, dropping event",
			"document", ev.DocumentID, "action", ev.Action)
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.logger.Warn("annotation store queue full, dropping event",
			"document", ev.DocumentID, "action", ev.Action)
	}
}

// Close drains the queue and stops the writer. Record calls arriving after
// Close are dropped.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.queue)
	})
	s.wg.Wait()
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	for ev := range s.queue {
		s.insert(ev)
	}
}

func (s *Store) insert(ev model.AnnotationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO annotation_events (document_id, user_id, action, annotation_id, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.DocumentID, ev.UserID, ev.Action, nullIfEmpty(ev.AnnotationID), ev.Payload, ev.OccurredAt,
	)
	if err != nil {
		s.logger.Error("insert annotation event failed",
			"document", ev.DocumentID, "action", ev.Action, "error", err)
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
