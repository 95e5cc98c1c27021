package cache

import (
	"testing"
	"time"
)

func TestNegativeCacheClockDrivenExpiry(t *testing.T) {
	nc := NewNegativeCache(NegativeTTLPolicy{
		Missing:      3600 * time.Second,
		LowLiquidity: 60 * time.Second,
		Found:        60 * time.Second,
	})

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	nc.SetClock(func() time.Time { return now })

	key := PoolKey("0xAaA", "0xBbB", 3000)
	nc.Put(key, OutcomeMissing, nil)

	now = base.Add(3599 * time.Second)
	if _, ok := nc.Lookup(key); !ok {
		t.Error("entry absent at 3599s, want present")
	}

	now = base.Add(3601 * time.Second)
	if _, ok := nc.Lookup(key); ok {
		t.Error("entry present at 3601s, want absent")
	}
}

func TestNegativeCachePerOutcomeTTL(t *testing.T) {
	nc := NewNegativeCache(NegativeTTLPolicy{
		Missing:      1 * time.Hour,
		LowLiquidity: 1 * time.Minute,
		Found:        2 * time.Minute,
	})

	base := time.Now()
	now := base
	nc.SetClock(func() time.Time { return now })

	missing := PoolKey("0x01", "0x02", 500)
	shallow := PoolKey("0x01", "0x02", 3000)
	found := RouteKey("0x01", "has-usd-route")

	nc.Put(missing, OutcomeMissing, nil)
	nc.Put(shallow, OutcomeLowLiquidity, nil)
	nc.Put(found, OutcomeFound, "0xpool")

	now = base.Add(90 * time.Second)
	if _, ok := nc.Lookup(shallow); ok {
		t.Error("low-liquidity entry survived past its short TTL")
	}
	if entry, ok := nc.Lookup(found); !ok || entry.Payload != "0xpool" {
		t.Errorf("found entry = %+v, present=%v; want payload 0xpool", entry, ok)
	}
	if _, ok := nc.Lookup(missing); !ok {
		t.Error("missing entry expired before its long TTL")
	}

	now = base.Add(3 * time.Minute)
	if _, ok := nc.Lookup(found); ok {
		t.Error("found entry survived past its TTL")
	}
	if _, ok := nc.Lookup(missing); !ok {
		t.Error("missing entry expired early")
	}
}

func TestPoolKeyCanonical(t *testing.T) {
	k1 := PoolKey("0xAbC", "0xDeF", 3000)
	k2 := PoolKey("0xdef", "0xABC", 3000)
	if k1 != k2 {
		t.Errorf("pool keys differ for same pair: %q vs %q", k1, k2)
	}

	k3 := PoolKey("0xabc", "0xdef", 500)
	if k1 == k3 {
		t.Error("pool keys identical across fee tiers")
	}
}

func TestNegativeCacheOverwriteRefreshes(t *testing.T) {
	nc := NewNegativeCache(DefaultNegativeTTLPolicy())

	base := time.Now()
	now := base
	nc.SetClock(func() time.Time { return now })

	key := PoolKey("0x01", "0x02", 100)
	nc.Put(key, OutcomeLowLiquidity, nil)

	now = base.Add(9 * time.Minute)
	nc.Put(key, OutcomeLowLiquidity, nil)

	now = base.Add(15 * time.Minute)
	if _, ok := nc.Lookup(key); !ok {
		t.Error("refreshed entry expired from original insert time")
	}
}
