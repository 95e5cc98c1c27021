package guard

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/quote"
)

// QuoteSource quotes a swap across the configured venues.
type QuoteSource interface {
	Best(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*quote.Quote, error)
}

type pricePoint struct {
	price float64
	at    time.Time
}

// PoolPricer derives a token's USD price from an on-chain quote of one
// whole token into a stablecoin. Failures fall back to the last good
// price, then to a configured static price, and only then error.
type PoolPricer struct {
	quotes         QuoteSource
	decimals       DecimalsSource
	stable         common.Address
	stableDecimals int
	fallback       float64
	ttl            time.Duration

	mu     sync.Mutex
	cached map[common.Address]pricePoint
	now    func() time.Time
}

// NewPoolPricer creates a pool-backed reference pricer.
func NewPoolPricer(quotes QuoteSource, decimals DecimalsSource, stable common.Address, stableDecimals int, fallback float64, ttl time.Duration) *PoolPricer {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PoolPricer{
		quotes:         quotes,
		decimals:       decimals,
		stable:         stable,
		stableDecimals: stableDecimals,
		fallback:       fallback,
		ttl:            ttl,
		cached:         make(map[common.Address]pricePoint),
		now:            time.Now,
	}
}

// USDPrice returns the USD price of one whole token.
func (p *PoolPricer) USDPrice(ctx context.Context, token common.Address) (float64, error) {
	if token == p.stable {
		return 1.0, nil
	}

	p.mu.Lock()
	if point, ok := p.cached[token]; ok && p.now().Sub(point.at) < p.ttl {
		p.mu.Unlock()
		return point.price, nil
	}
	p.mu.Unlock()

	price, err := p.fetch(ctx, token)
	if err != nil {
		p.mu.Lock()
		point, ok := p.cached[token]
		p.mu.Unlock()
		if ok {
			return point.price, nil
		}
		if p.fallback > 0 {
			return p.fallback, nil
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrUnpriceable, token.Hex(), err)
	}

	p.mu.Lock()
	p.cached[token] = pricePoint{price: price, at: p.now()}
	p.mu.Unlock()
	return price, nil
}

func (p *PoolPricer) fetch(ctx context.Context, token common.Address) (float64, error) {
	dec, err := p.decimals.Decimals(ctx, token)
	if err != nil {
		return 0, err
	}
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec)), nil)

	q, err := p.quotes.Best(ctx, token, p.stable, one)
	if err != nil {
		return 0, err
	}

	out := new(big.Float).SetInt(q.AmountOut)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(p.stableDecimals)), nil))
	price, _ := new(big.Float).Quo(out, scale).Float64()
	if price <= 0 {
		return 0, fmt.Errorf("non-positive pool price for %s", token.Hex())
	}
	return price, nil
}

// SetClock overrides the pricer clock. Intended for tests.
func (p *PoolPricer) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}
