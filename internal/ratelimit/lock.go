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

var ErrLockUnavailable = errors.New("lock_unavailable")

// Locker hands out expiring exclusive leases on redis keys. Only the holder's
// token can release a lease early.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

type Lease struct {
	Key   string
	Token string
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

// Acquire returns ok=false when another holder owns key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if l == nil || l.client == nil {
		return Lease{}, false, ErrLockUnavailable
	}
	if key == "" || ttl <= 0 {
		return Lease{}, false, errors.New("lock key and ttl are required")
	}

	lease := Lease{Key: key, Token: uuid.NewString()}
	ok, err := l.client.SetNX(ctx, key, lease.Token, ttl).Result()
	if err != nil || !ok {
		return Lease{}, false, err
	}
	return lease, true, nil
}

func (l *Locker) Release(ctx context.Context, lease Lease) error {
	if l == nil || l.client == nil || lease.Token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lease.Key}, lease.Token).Err()
}
