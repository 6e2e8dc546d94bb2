package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

const (
	// lockPrefix keeps lock keys apart from the aggregator's keys.
	lockPrefix = "marketgroups:lock:"

	// unlockTimeout bounds the release call, which runs after the caller's
	// context may have ended.
	unlockTimeout = 5 * time.Second
)

// unlockLua deletes a lock key only if its value matches the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements domain.LockManager with SET NX and a token-checked
// release. The organizer service takes domain.RecomputeLockKey(eventID) so
// only one replica recomputes and publishes an event at a time.
type LockManager struct {
	rdb    *redis.Client
	unlock *redis.Script
}

// NewLockManager creates a LockManager backed by c.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:    c.Underlying(),
		unlock: redis.NewScript(unlockLua),
	}
}

func lockKey(key string) string {
	return lockPrefix + key
}

// Acquire takes the lock named key for ttl. The returned release func may be
// called more than once and from any goroutine.
//
// When another replica holds the lock the error wraps domain.ErrLockHeld and
// reports how long the holder's lease has left.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		left, _ := lm.rdb.PTTL(ctx, lk).Result()
		return nil, fmt.Errorf("redis: lock %s (expires in %s): %w", key, left.Round(time.Millisecond), domain.ErrLockHeld)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
			defer cancel()
			_ = lm.unlock.Run(ctx, lm.rdb, []string{lk}, token).Err()
		})
	}
	return release, nil
}

var _ domain.LockManager = (*LockManager)(nil)
