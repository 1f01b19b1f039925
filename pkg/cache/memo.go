// Package cache provides a bounded, string-keyed memoizer: LRU storage in front of a
// load function, with singleflight so concurrent misses for one key share a single load.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a shared load when no WithLoadTimeout option is given.
const DefaultLoadTimeout = 30 * time.Second

// LoadFunc computes the value for key on a cache miss.
type LoadFunc[V any] func(ctx context.Context, key string) (V, error)

// Memo caches values produced by a LoadFunc. Failed loads are not cached.
type Memo[V any] struct {
	lru         *lru.Cache[string, V]
	group       singleflight.Group
	load        LoadFunc[V]
	loadTimeout time.Duration
}

// MemoOption configures a Memo.
type MemoOption func(*memoOptions)

type memoOptions struct {
	loadTimeout time.Duration
}

// WithLoadTimeout sets the deadline of a shared load. Non-positive values keep the default.
func WithLoadTimeout(d time.Duration) MemoOption {
	return func(o *memoOptions) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// NewMemo creates a Memo holding at most maxEntries values.
func NewMemo[V any](maxEntries int, load LoadFunc[V], opts ...MemoOption) (*Memo[V], error) {
	o := memoOptions{loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	lruCache, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, err //nolint:wrapcheck // lru only fails on a non-positive size
	}

	return &Memo[V]{lru: lruCache, load: load, loadTimeout: o.loadTimeout}, nil
}

// Get returns the value for key and whether it was served from cache.
// On a miss, only one caller runs the load for key; the others wait for and share its result.
// The load is detached from the cancellation of whichever caller started it and runs under
// the memo's own load timeout. A cancelled caller stops waiting and gets ctx.Err().
func (m *Memo[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	if v, ok := m.lru.Get(key); ok {
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)

	ch := m.group.DoChan(key, func() (any, error) {
		timeoutCtx, cancel := context.WithTimeout(loadCtx, m.loadTimeout)
		defer cancel()

		loaded, loadErr := m.load(timeoutCtx, key)
		if loadErr != nil {
			return nil, loadErr
		}

		m.lru.Add(key, loaded)

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err() //nolint:wrapcheck // caller's own cancellation
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}

		return res.Val.(V), false, nil //nolint:forcetypeassert // only V is stored
	}
}

// Purge removes all entries.
func (m *Memo[V]) Purge() {
	m.lru.Purge()
}

// Len returns the number of cached entries.
func (m *Memo[V]) Len() int {
	return m.lru.Len()
}
