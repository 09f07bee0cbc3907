package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/legaldoc/collabhub/internal/model"
)

// Mirror reflects live presence state into Redis for out-of-band consumers
// elsewhere in the document system. The in-memory registry stays
// authoritative; the mirror is best-effort and callers swallow its errors.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMirror creates a Mirror. ttl bounds how long a member or cursor key
// survives without refresh.
func NewMirror(rdb *redis.Client, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Mirror{rdb: rdb, ttl: ttl}
}

// Join records a participant in the document's presence set.
func (m *Mirror) Join(ctx context.Context, documentID, userID string) error {
	pipe := m.rdb.Pipeline()
	pipe.SAdd(ctx, documentKey(documentID), userID)
	pipe.Set(ctx, memberKey(documentID, userID), "1", m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror join: %w", err)
	}
	return nil
}

// Leave removes a participant and their cursor from the mirror.
func (m *Mirror) Leave(ctx context.Context, documentID, userID string) error {
	pipe := m.rdb.Pipeline()
	pipe.SRem(ctx, documentKey(documentID), userID)
	pipe.Del(ctx, memberKey(documentID, userID))
	pipe.Del(ctx, cursorKey(documentID, userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror leave: %w", err)
	}
	return nil
}

// SetCursor stores the participant's latest cursor position.
func (m *Mirror) SetCursor(ctx context.Context, documentID, userID string, pos model.CursorPosition) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}
	if err := m.rdb.Set(ctx, cursorKey(documentID, userID), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("mirror cursor: %w", err)
	}
	return nil
}

// Members returns the mirrored participant set for a document.
func (m *Mirror) Members(ctx context.Context, documentID string) ([]string, error) {
	members, err := m.rdb.SMembers(ctx, documentKey(documentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("mirror members: %w", err)
	}
	return members, nil
}

// Cursor returns the mirrored cursor for one participant, or false if none
// is stored.
func (m *Mirror) Cursor(ctx context.Context, documentID, userID string) (model.CursorPosition, bool, error) {
	data, err := m.rdb.Get(ctx, cursorKey(documentID, userID)).Bytes()
	if err == redis.Nil {
		return model.CursorPosition{}, false, nil
	}
	if err != nil {
		return model.CursorPosition{}, false, fmt.Errorf("mirror cursor get: %w", err)
	}
	var pos model.CursorPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return model.CursorPosition{}, false, fmt.Errorf("unmarshal cursor: %w", err)
	}
	return pos, true, nil
}
