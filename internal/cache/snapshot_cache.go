package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
	"doom-index/internal/observability"
)

// SnapshotCache stores market snapshots per hour bucket in Redis.
type SnapshotCache struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewSnapshotCache creates a snapshot cache. ttl <= 0 defaults to 2h.
func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		rdb:       rdb,
		ttl:       orDefault(ttl, 2*time.Hour),
		namespace: defaultNamespace,
	}
}

// Get returns the cached snapshot, or nil on a miss.
func (c *SnapshotCache) Get(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error) {
	k := key(c.namespace, "snapshot", hourBucket)
	b, err := c.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordCacheLookup("redis", false)
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get", k, "redis get failed", err)
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		// Corrupted entry: drop it and report a miss.
		_ = c.rdb.Del(ctx, k).Err()
		observability.RecordCacheLookup("redis", false)
		return nil, nil
	}
	observability.RecordCacheLookup("redis", true)
	return &snap, nil
}

// Set stores the snapshot under its hour bucket.
func (c *SnapshotCache) Set(ctx context.Context, snap *domain.MarketSnapshot) error {
	k := key(c.namespace, "snapshot", snap.HourBucket)
	b, err := json.Marshal(snap)
	if err != nil {
		return apperr.Internal("marshal snapshot", err)
	}
	if err := c.rdb.Set(ctx, k, b, c.ttl).Err(); err != nil {
		return apperr.Storage("set", k, "redis set failed", err)
	}
	return nil
}
