// Package lock provides an optional distributed run lock over Redis, so
// two fusion processes never drive the same run id's workspace at once
// when the CLI is deployed on more than one host.
package lock

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Lock holds one acquired SET-NX lock on a run id.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire attempts to take the lock for runID, valid for ttl. It returns
// (nil, false, nil) if another process already holds it.
func Acquire(ctx context.Context, redisURL, runID string, ttl time.Duration) (*Lock, bool, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, false, fmt.Errorf("lock: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	key := "fusion:lock:" + runID
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		_ = client.Close()
		return nil, false, fmt.Errorf("lock: setnx: %w", err)
	}
	if !ok {
		_ = client.Close()
		return nil, false, nil
	}

	return &Lock{client: client, key: key, token: token}, true, nil
}

// releaseScript only deletes the key if it still holds this lock's token,
// so a process never releases a lock some other process has since taken
// over after this one's TTL expired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// Release drops the lock if this process still holds it, and closes the
// underlying Redis client.
func (l *Lock) Release(ctx context.Context) error {
	defer l.client.Close()
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
