package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Keyed coalesces concurrent recomputes of the same cache key: when several
// requests miss on one key before it is populated, only the first runs the
// compute and the rest share its result.
type Keyed struct {
	group singleflight.Group
}

// Do runs fn once per in-flight key; duplicate callers block on the winner.
func (k *Keyed) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	v, err, shared := k.group.Do(key, func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, shared, err
	}
	b, _ := v.([]byte)
	return b, shared, nil
}
