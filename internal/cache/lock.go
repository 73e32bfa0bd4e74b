package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RunLocker guards scheduled jobs so overlapping runs across instances skip.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type redisLocker struct {
	client *redis.Client
	script *redis.Script
}

type noopLocker struct{}

// NewRunLocker returns a redis SET NX locker, or one that always grants the
// lock when client is nil.
func NewRunLocker(client *redis.Client) RunLocker {
	if client == nil {
		return noopLocker{}
	}
	return &redisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *redisLocker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

func (noopLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	return "", true, nil
}

func (noopLocker) Release(ctx context.Context, key, token string) error {
	return nil
}
