package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/amm"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/resolver"
)

// maxDepthPpm caps the trade size relative to the pool's virtual reserve.
// Beyond this the single-slot price model misprices badly.
const maxDepthPpm = 100_000 // 10%

// poolResolver is the slice of resolver.Resolver the routers use.
type poolResolver interface {
	ResolveV3Pool(ctx context.Context, factory, tokenA, tokenB common.Address, fee uint32) (*resolver.V3Pool, error)
	ResolveV2Pair(ctx context.Context, factory, tokenA, tokenB common.Address) (*resolver.V2Pair, error)
}

// V3Router quotes against concentrated-liquidity pools, trying every
// configured fee tier and keeping the best output.
type V3Router struct {
	name     string
	router   common.Address
	factory  common.Address
	feeTiers []uint32
	gasUnits uint64
	pools    poolResolver
}

// NewV3Router creates a v3 venue router.
func NewV3Router(name string, router, factory common.Address, feeTiers []uint32, gasUnits uint64, pools poolResolver) *V3Router {
	return &V3Router{
		name:     name,
		router:   router,
		factory:  factory,
		feeTiers: feeTiers,
		gasUnits: gasUnits,
		pools:    pools,
	}
}

// Name returns the venue name.
func (r *V3Router) Name() string {
	return r.name
}

// Quote resolves each fee tier's pool and prices the swap from its slot
// state. The best tier wins; a tier with no pool is skipped.
func (r *V3Router) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*Quote, error) {
	var best *Quote
	var lastErr error

	for _, fee := range r.feeTiers {
		pool, err := r.pools.ResolveV3Pool(ctx, r.factory, tokenIn, tokenOut, fee)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		zeroForOne := tokenIn == pool.Token0
		if !zeroForOne && tokenIn != pool.Token1 {
			lastErr = fmt.Errorf("pool %s does not contain token %s", pool.Address.Hex(), tokenIn.Hex())
			continue
		}

		if err := amm.CheckSlotDepth(pool.SqrtPriceX96, pool.Liquidity, zeroForOne, amountIn, maxDepthPpm); err != nil {
			lastErr = fmt.Errorf("tier %d: %w", fee, err)
			continue
		}

		out, err := amm.QuoteSlotPrice(pool.SqrtPriceX96, fee, zeroForOne, amountIn)
		if err != nil {
			lastErr = fmt.Errorf("tier %d: %w", fee, err)
			continue
		}

		if best == nil || out.Cmp(best.AmountOut) > 0 {
			best = &Quote{
				Venue:         r.name,
				Kind:          "v3",
				RouterAddress: r.router,
				Pool:          pool.Address,
				FeeTier:       fee,
				TokenIn:       tokenIn,
				TokenOut:      tokenOut,
				AmountIn:      new(big.Int).Set(amountIn),
				AmountOut:     out,
				GasUnits:      r.gasUnits,
			}
		}
	}

	if best == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.New("no fee tiers configured")
	}
	return best, nil
}
