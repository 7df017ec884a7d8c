// Package history publishes per-room action records to Redis for the
// historian. Records are advisory: a missing Redis deployment turns the
// recorder into a no-op rather than blocking play.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a room's action list survives after the
// last write.
const DefaultTTL = 24 * time.Hour

// ActionRecord is one accepted intent, in arrival order per room.
type ActionRecord struct {
	RoomID  string                 `json:"roomId"`
	Index   int                    `json:"index"`
	ActorID string                 `json:"actorId,omitempty"`
	Action  string                 `json:"action"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	TS      int64                  `json:"ts"` // unix milliseconds
}

// Recorder appends records to a per-room Redis list. A nil Recorder or
// nil client silently drops records.
type Recorder struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRecorder wraps an initialized Redis client. ttl <= 0 falls back to
// DefaultTTL.
func NewRecorder(rdb *redis.Client, ttl time.Duration) *Recorder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Recorder{rdb: rdb, ttl: ttl}
}

func actionKey(roomID string) string {
	return "room:actions:" + roomID
}

// Publish appends one record to the room's list and refreshes the TTL.
func (r *Recorder) Publish(ctx context.Context, rec ActionRecord) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	key := actionKey(rec.RoomID)
	pipe := r.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish action record: %w", err)
	}
	return nil
}

// List returns every record currently retained for the room, oldest
// first.
func (r *Recorder) List(ctx context.Context, roomID string) ([]ActionRecord, error) {
	if r == nil || r.rdb == nil {
		return nil, nil
	}
	raw, err := r.rdb.LRange(ctx, actionKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read action records: %w", err)
	}
	records := make([]ActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec ActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode action record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
