package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// LiveCountKey is the counter the worker maintains per open session.
func LiveCountKey(sessionID int64) string {
	return fmt.Sprintf("campustap:live:%d", sessionID)
}

// LiveCount returns the current tap counter for a session, zero when unset.
func (r *Redis) LiveCount(ctx context.Context, sessionID int64) (int64, error) {
	n, err := r.Client.Get(ctx, LiveCountKey(sessionID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
