package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out short single-flight locks backed by redis SETNX.
// Releases are token-checked, so a holder whose lock already expired
// cannot delete a successor's lock.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// Acquire takes the lock and returns its release func. ok is false when
// another holder already has it. The release func runs against a fresh
// background context so a cancelled request still releases.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	release := func() {}
	if l == nil || l.client == nil {
		return release, false, errors.New("lock client not configured")
	}
	if key == "" {
		return release, false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return release, false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return release, false, err
	}
	return func() {
		_ = l.script.Run(context.Background(), l.client, []string{key}, token).Err()
	}, true, nil
}
