package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Outcome classifies a recorded lookup result.
type Outcome int

const (
	// OutcomeMissing records that the pool or route does not exist.
	OutcomeMissing Outcome = iota

	// OutcomeLowLiquidity records a pool that exists but is too shallow
	// to quote against.
	OutcomeLowLiquidity

	// OutcomeFound records a route that passed a heuristic check; the
	// payload carries the positive result. Found entries get the short
	// TTL because the heuristic can go stale.
	OutcomeFound
)

// NegativeEntry is one recorded lookup result.
type NegativeEntry struct {
	Outcome Outcome
	Payload interface{}
	expires time.Time
}

// NegativeTTLPolicy sets the validity window per outcome. The convention is
// uniform across all callers: hard "missing" results live long (hours),
// low-liquidity and heuristic "found" results live short (minutes).
type NegativeTTLPolicy struct {
	Missing      time.Duration
	LowLiquidity time.Duration
	Found        time.Duration
}

// DefaultNegativeTTLPolicy returns the standard TTL policy.
func DefaultNegativeTTLPolicy() NegativeTTLPolicy {
	return NegativeTTLPolicy{
		Missing:      4 * time.Hour,
		LowLiquidity: 10 * time.Minute,
		Found:        5 * time.Minute,
	}
}

// NegativeCache records failed (and heuristically-passed) lookups so known
// missing pools are not re-queried within their TTL window. Expiry is
// clock-driven on read; no background sweeping is needed for correctness.
type NegativeCache struct {
	mu      sync.RWMutex
	entries map[string]NegativeEntry
	policy  NegativeTTLPolicy
	now     func() time.Time
}

// NewNegativeCache creates a negative cache with the given TTL policy.
func NewNegativeCache(policy NegativeTTLPolicy) *NegativeCache {
	if policy.Missing <= 0 {
		policy.Missing = 4 * time.Hour
	}
	if policy.LowLiquidity <= 0 {
		policy.LowLiquidity = 10 * time.Minute
	}
	if policy.Found <= 0 {
		policy.Found = 5 * time.Minute
	}

	return &NegativeCache{
		entries: make(map[string]NegativeEntry),
		policy:  policy,
		now:     time.Now,
	}
}

// Put records an outcome for key. The payload is only meaningful for
// OutcomeFound entries.
func (c *NegativeCache) Put(key string, outcome Outcome, payload interface{}) {
	var ttl time.Duration
	switch outcome {
	case OutcomeMissing:
		ttl = c.policy.Missing
	case OutcomeLowLiquidity:
		ttl = c.policy.LowLiquidity
	default:
		ttl = c.policy.Found
	}

	c.mu.Lock()
	c.entries[key] = NegativeEntry{
		Outcome: outcome,
		Payload: payload,
		expires: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

// Lookup returns the recorded entry for key if it has not expired.
func (c *NegativeCache) Lookup(key string) (NegativeEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return NegativeEntry{}, false
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		// Re-check under the write lock; another Put may have refreshed it.
		if cur, still := c.entries[key]; still && !c.now().Before(cur.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return NegativeEntry{}, false
	}

	return entry, true
}

// Len returns the number of entries, expired or not.
func (c *NegativeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SetClock overrides the cache's clock. Intended for tests.
func (c *NegativeCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// PoolKey builds the canonical key for a token pair and fee tier: the two
// addresses lower-cased and sorted so key identity ignores pair order.
func PoolKey(tokenA, tokenB string, feeTier uint32) string {
	a := strings.ToLower(tokenA)
	b := strings.ToLower(tokenB)
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("pool:%s:%s:%d", a, b, feeTier)
}

// RouteKey builds the canonical key for a token-level route property, such
// as "this token has a USD conversion route".
func RouteKey(token, property string) string {
	return fmt.Sprintf("route:%s:%s", strings.ToLower(token), property)
}
