// Package quote produces swap quotes from raw pool state across all
// configured venues and selects the best one.
package quote

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoQuote indicates no venue produced a usable quote for the request.
// It is an expected outcome, not a failure of the quoting machinery.
var ErrNoQuote = errors.New("no venue produced a quote")

// Quote is one venue's answer for a proposed swap.
type Quote struct {
	Venue         string
	Kind          string // "v3" or "v2"
	RouterAddress common.Address
	Pool          common.Address
	FeeTier       uint32 // v3 fee in ppm units (e.g. 3000 = 0.3%)
	FeeBps        uint32 // v2 fee in bps (e.g. 30 = 0.3%)
	TokenIn       common.Address
	TokenOut      common.Address
	AmountIn      *big.Int
	AmountOut     *big.Int
	GasUnits      uint64
}

// Router quotes a swap against one venue.
type Router interface {
	// Name returns the venue name for logging and metrics.
	Name() string

	// Quote returns the venue's best output for the swap. A venue with
	// no pool for the pair returns an error, not a zero quote.
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*Quote, error)
}
