package quote

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/amm"
)

// V2Router quotes against constant-product pairs.
type V2Router struct {
	name     string
	router   common.Address
	factory  common.Address
	feeBps   uint32
	gasUnits uint64
	pools    poolResolver
}

// NewV2Router creates a v2 venue router.
func NewV2Router(name string, router, factory common.Address, feeBps uint32, gasUnits uint64, pools poolResolver) *V2Router {
	return &V2Router{
		name:     name,
		router:   router,
		factory:  factory,
		feeBps:   feeBps,
		gasUnits: gasUnits,
		pools:    pools,
	}
}

// Name returns the venue name.
func (r *V2Router) Name() string {
	return r.name
}

// Quote resolves the pair and prices the swap from its reserves.
func (r *V2Router) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*Quote, error) {
	pair, err := r.pools.ResolveV2Pair(ctx, r.factory, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	var reserveIn, reserveOut *big.Int
	switch tokenIn {
	case pair.Token0:
		reserveIn, reserveOut = pair.Reserve0, pair.Reserve1
	case pair.Token1:
		reserveIn, reserveOut = pair.Reserve1, pair.Reserve0
	default:
		return nil, fmt.Errorf("pair %s does not contain token %s", pair.Address.Hex(), tokenIn.Hex())
	}

	out, err := amm.ConstantProductOut(amountIn, reserveIn, reserveOut, r.feeBps)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Venue:         r.name,
		Kind:          "v2",
		RouterAddress: r.router,
		Pool:          pair.Address,
		FeeBps:        r.feeBps,
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		AmountIn:      new(big.Int).Set(amountIn),
		AmountOut:     out,
		GasUnits:      r.gasUnits,
	}, nil
}
