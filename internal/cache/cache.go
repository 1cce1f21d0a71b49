package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the injected result-cache abstraction. Values are opaque bytes;
// callers own serialization so the memory and redis backends stay symmetric.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	// InvalidatePrefix removes every key starting with prefix and returns
	// how many were dropped.
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// RecommendKey builds the cache key for one user's recommendation slice.
func RecommendKey(userID, kind, category string) string {
	return fmt.Sprintf("rec:%s:%s:%s", userID, kind, category)
}

// UserPrefix covers every recommendation entry belonging to one user.
func UserPrefix(userID string) string {
	return "rec:" + userID + ":"
}
