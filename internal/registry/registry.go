package registry

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/legaldoc/collabhub/internal/model"
)

// DefaultShardCount is used when no shard count is configured.
const DefaultShardCount = 16

// Sink is the outbound side of a participant connection. Send must not
// block; an error means the peer is gone and the caller should deregister it.
type Sink interface {
	Send(data []byte) error
}

// entry is one registered participant connection.
type entry struct {
	sink   Sink
	cursor model.CursorPosition
}

// channel groups all live connections for one document. Created lazily on
// first Register, removed when its last participant deregisters.
type channel struct {
	participants map[string]*entry
}

// shard guards a subset of document channels. Operations on the same
// document always hit the same shard, so per-document atomicity holds;
// independent documents usually land on different shards and proceed in
// parallel.
type shard struct {
	mu       sync.RWMutex
	channels map[string]*channel
}

// Registry is the bookkeeping for which participants are connected to which
// document and their last-known cursor. It is the only shared mutable state
// in the hub; Gateway and Router code never touch the underlying maps.
//
// Known issue, preserved from the original system: a reconnect under an
// already-registered (document, participant) pair overwrites the slot
// without closing the previous physical connection, and Deregister is keyed
// by (document, participant) only, so the stale connection's later teardown
// removes the replacement's entry too.
type Registry struct {
	shards []*shard
}

// New creates a Registry with the given number of lock shards.
// shardCount <= 0 selects DefaultShardCount.
func New(shardCount int) *Registry {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{channels: make(map[string]*channel)}
	}
	return &Registry{shards: shards}
}

func (r *Registry) shardFor(documentID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(documentID))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Register inserts a connection for (documentID, userID), creating the
// document channel if needed. The cursor starts at the default position.
// A duplicate registration overwrites the existing slot.
func (r *Registry) Register(documentID, userID string, sink Sink) {
	s := r.shardFor(documentID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channels[documentID]
	if ch == nil {
		ch = &channel{participants: make(map[string]*entry)}
		s.channels[documentID] = ch
	}
	ch.participants[userID] = &entry{sink: sink, cursor: model.DefaultCursor()}
}

// Deregister removes the connection and its cursor state. The document
// channel is deleted when its last participant leaves; the emptiness check
// runs inside the same critical section so a concurrent Register cannot
// interleave. Deregistering an unknown participant is a no-op.
func (r *Registry) Deregister(documentID, userID string) {
	s := r.shardFor(documentID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channels[documentID]
	if ch == nil {
		return
	}
	delete(ch.participants, userID)
	if len(ch.participants) == 0 {
		delete(s.channels, documentID)
	}
}

// UpdateCursor overwrites the stored cursor for a registered participant.
// No-op if the participant is not registered.
func (r *Registry) UpdateCursor(documentID, userID string, pos model.CursorPosition) {
	s := r.shardFor(documentID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channels[documentID]
	if ch == nil {
		return
	}
	if e, ok := ch.participants[userID]; ok {
		e.cursor = pos
	}
}

// Participants returns the ids of all participants connected to the
// document, sorted for stable output. Unknown documents yield an empty
// slice, never nil.
func (r *Registry) Participants(documentID string) []string {
	s := r.shardFor(documentID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch := s.channels[documentID]
	users := make([]string, 0, lenOrZero(ch))
	if ch != nil {
		for userID := range ch.participants {
			users = append(users, userID)
		}
	}
	sort.Strings(users)
	return users
}

// Cursors returns a snapshot of all cursor positions for the document.
// Unknown documents yield an empty map, never nil.
func (r *Registry) Cursors(documentID string) map[string]model.CursorPosition {
	s := r.shardFor(documentID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch := s.channels[documentID]
	cursors := make(map[string]model.CursorPosition, lenOrZero(ch))
	if ch != nil {
		for userID, e := range ch.participants {
			cursors[userID] = e.cursor
		}
	}
	return cursors
}

// Peers returns the sinks of every participant in the document except
// excludeUser. The returned map is a copy; callers may range over it and
// call back into the Registry without holding any lock.
func (r *Registry) Peers(documentID, excludeUser string) map[string]Sink {
	s := r.shardFor(documentID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch := s.channels[documentID]
	if ch == nil {
		return nil
	}
	peers := make(map[string]Sink, len(ch.participants))
	for userID, e := range ch.participants {
		if userID == excludeUser {
			continue
		}
		peers[userID] = e.sink
	}
	return peers
}

// Documents enumerates all documents that currently have at least one
// participant. Channels are garbage-collected on last deregister, so an
// idle document never appears here.
func (r *Registry) Documents() []string {
	var docs []string
	for _, s := range r.shards {
		s.mu.RLock()
		for documentID := range s.channels {
			docs = append(docs, documentID)
		}
		s.mu.RUnlock()
	}
	sort.Strings(docs)
	return docs
}

func lenOrZero(ch *channel) int {
	if ch == nil {
		return 0
	}
	return len(ch.participants)
}
