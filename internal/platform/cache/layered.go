package cache

import (
	"context"
	"time"
)

// maxL1TTL caps how long entries live in the memory layer; L2 keeps the
// caller's full TTL.
const maxL1TTL = 1 * time.Minute

// LayeredCache is a two-tier cache: L1 memory in front of L2 Redis.
// Reads fall through L1 to L2 and backfill L1 on a hit.
type LayeredCache struct {
	l1 Cache
	l2 Cache
}

// NewLayeredCache creates a new layered cache. Either layer may be nil.
func NewLayeredCache(l1, l2 Cache) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

// Get retrieves a value (L1, then L2, then miss).
func (lc *LayeredCache) Get(ctx context.Context, key string) (interface{}, error) {
	if lc.l1 != nil {
		if val, err := lc.l1.Get(ctx, key); err == nil {
			return val, nil
		}
	}

	if lc.l2 != nil {
		val, err := lc.l2.Get(ctx, key)
		if err == nil {
			if lc.l1 != nil {
				_ = lc.l1.Set(ctx, key, val, maxL1TTL)
			}
			return val, nil
		}
	}

	return nil, ErrNotFound
}

// Set writes through to both layers. It fails only if every layer fails.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1TTL := ttl
		if l1TTL > maxL1TTL {
			l1TTL = maxL1TTL
		}
		l1Err = lc.l1.Set(ctx, key, value, l1TTL)
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Set(ctx, key, value, ttl)
	}

	if l1Err != nil && l2Err != nil {
		return l2Err
	}
	return nil
}

// Delete removes a key from both layers.
func (lc *LayeredCache) Delete(ctx context.Context, key string) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Delete(ctx, key)
	}
	if lc.l2 != nil {
		l2Err = lc.l2.Delete(ctx, key)
	}

	if l1Err != nil {
		return l1Err
	}
	return l2Err
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Close()
	}
	if lc.l2 != nil {
		l2Err = lc.l2.Close()
	}

	if l1Err != nil {
		return l1Err
	}
	return l2Err
}
