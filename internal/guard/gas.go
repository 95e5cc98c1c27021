package guard

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
)

// GasPriceSource fetches the current suggested gas price.
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasOracle caches the suggested gas price for a short TTL and caps it.
// Gas moves block to block, so a ~1 block TTL keeps the price fresh
// without a chain call per evaluation.
type GasOracle struct {
	source GasPriceSource
	ttl    time.Duration
	maxWei *big.Int

	mu        sync.Mutex
	cached    *big.Int
	fetchedAt time.Time
	now       func() time.Time

	metrics *observability.Metrics
}

// NewGasOracle creates a gas oracle. maxGwei caps the reported price; a
// provider glitch must not make every trade look unprofitable forever.
func NewGasOracle(source GasPriceSource, ttl time.Duration, maxGwei int64, metrics *observability.Metrics) *GasOracle {
	if ttl <= 0 {
		ttl = 12 * time.Second
	}
	var maxWei *big.Int
	if maxGwei > 0 {
		maxWei = new(big.Int).Mul(big.NewInt(maxGwei), big.NewInt(1_000_000_000))
	}
	return &GasOracle{
		source:  source,
		ttl:     ttl,
		maxWei:  maxWei,
		now:     time.Now,
		metrics: metrics,
	}
}

// Price returns the current gas price in wei.
func (o *GasOracle) Price(ctx context.Context) (*big.Int, error) {
	o.mu.Lock()
	if o.cached != nil && o.now().Sub(o.fetchedAt) < o.ttl {
		price := new(big.Int).Set(o.cached)
		o.mu.Unlock()
		return price, nil
	}
	o.mu.Unlock()

	fresh, err := o.source.SuggestGasPrice(ctx)
	if err != nil {
		o.mu.Lock()
		defer o.mu.Unlock()
		// Serve stale on fetch failure if we have anything at all.
		if o.cached != nil {
			return new(big.Int).Set(o.cached), nil
		}
		return nil, err
	}

	if o.maxWei != nil && fresh.Cmp(o.maxWei) > 0 {
		fresh = new(big.Int).Set(o.maxWei)
	}

	o.mu.Lock()
	// Another goroutine may have refreshed first; last write wins, both
	// values are equally fresh.
	o.cached = new(big.Int).Set(fresh)
	o.fetchedAt = o.now()
	o.mu.Unlock()

	if o.metrics != nil {
		gwei := new(big.Float).Quo(new(big.Float).SetInt(fresh), big.NewFloat(1e9))
		f, _ := gwei.Float64()
		o.metrics.RecordGasPrice(ctx, f)
	}

	return new(big.Int).Set(fresh), nil
}

// SetClock overrides the oracle clock. Intended for tests.
func (o *GasOracle) SetClock(now func() time.Time) {
	o.mu.Lock()
	o.now = now
	o.mu.Unlock()
}
