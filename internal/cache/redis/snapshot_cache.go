package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// DefaultSnapshotTTL applies when NewSnapshotCache gets a zero ttl.
const DefaultSnapshotTTL = 10 * time.Minute

// SnapshotCache implements domain.SnapshotCache using Redis hashes holding
// the JSON-serialized snapshot.
//
// Key schema:
//
//	snapshot:{eventID} - hash with fields "data" (JSON) and "updated_at" (unix ms)
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

func snapshotKey(eventID string) string { return "snapshot:" + eventID }

// Set stores a snapshot and refreshes its TTL.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.EventSnapshot) error {
	if snap.EventID == "" {
		return fmt.Errorf("redis: set snapshot: %w: empty event id", domain.ErrInvalidPayload)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", snap.EventID, err)
	}

	key := snapshotKey(snap.EventID)

	pipe := sc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "updated_at", time.Now().UnixMilli())
	pipe.Expire(ctx, key, sc.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", snap.EventID, err)
	}
	return nil
}

// Get retrieves the snapshot of an event.
// It returns domain.ErrNotFound when the key does not exist.
func (sc *SnapshotCache) Get(ctx context.Context, eventID string) (domain.EventSnapshot, error) {
	data, err := sc.rdb.HGet(ctx, snapshotKey(eventID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EventSnapshot{}, domain.ErrNotFound
		}
		return domain.EventSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", eventID, err)
	}

	var snap domain.EventSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.EventSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", eventID, err)
	}
	return snap, nil
}

// Invalidate removes an event's snapshot.
func (sc *SnapshotCache) Invalidate(ctx context.Context, eventID string) error {
	if err := sc.rdb.Del(ctx, snapshotKey(eventID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %s: %w", eventID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
