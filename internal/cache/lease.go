package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"doom-index/internal/apperr"
)

// releaseScript deletes the lease only while it is still held by owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a per-bucket mutual exclusion lock with a TTL.
type Lease struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewLease creates a lease manager. ttl <= 0 defaults to 3m.
func NewLease(rdb *redis.Client, ttl time.Duration) *Lease {
	return &Lease{
		rdb:       rdb,
		ttl:       orDefault(ttl, 3*time.Minute),
		namespace: defaultNamespace,
	}
}

// Acquire claims bucket for owner. It returns false when another owner
// holds the lease.
func (l *Lease) Acquire(ctx context.Context, bucket, owner string) (bool, error) {
	k := key(l.namespace, "lease", bucket)
	ok, err := l.rdb.SetNX(ctx, k, owner, l.ttl).Result()
	if err != nil {
		return false, apperr.Storage("setnx", k, "lease acquire failed", err)
	}
	return ok, nil
}

// Release frees bucket if owner still holds it.
func (l *Lease) Release(ctx context.Context, bucket, owner string) error {
	k := key(l.namespace, "lease", bucket)
	if err := releaseScript.Run(ctx, l.rdb, []string{k}, owner).Err(); err != nil {
		return apperr.Storage("release", k, "lease release failed", err)
	}
	return nil
}
