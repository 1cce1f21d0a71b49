package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/discovery-api/internal/redisx"
)

// Redis backs the cache with a shared redis instance so multiple service
// replicas see the same entries.
type Redis struct {
	client *redisx.Client
}

func NewRedis(client *redisx.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key)
	if err != nil {
		// redis.Nil is an ordinary miss; anything else degrades to a miss
		// rather than failing the request.
		return nil, false
	}
	return []byte(val), true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, string(val), ttl)
}

func (r *Redis) Invalidate(ctx context.Context, key string) error {
	_, err := r.client.Del(ctx, key)
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (r *Redis) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := r.client.ScanKeys(ctx, prefix+"*")
	if err != nil {
		return 0, err
	}
	n, err := r.client.Del(ctx, keys...)
	return int(n), err
}
