// Package amm provides pure swap math over raw pool state.
// All amount arithmetic uses math/big integers; floats appear only in
// display-price helpers. No I/O happens here.
package amm

import (
	"math/big"
)

var (
	q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	q192 = new(big.Int).Lsh(big.NewInt(1), 192)
)

// FeeDenominatorPpm is the denominator for concentrated-liquidity fee tiers
// (fees are expressed in parts-per-million, e.g. 3000 = 0.30%).
const FeeDenominatorPpm = 1_000_000

// SlotPrice returns the instantaneous price of token1 in terms of token0,
// decimal-adjusted for human display: (S/2^96)^2 * 10^(d0-d1).
// The exponent is derived from the pool's own token0/token1 ordering; the
// raw-unit swap estimate in QuoteSlotPrice needs no decimal adjustment.
func SlotPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 int) (*big.Float, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return nil, ErrZeroPrice
	}

	// price = S^2 / 2^192
	priceNum := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	price := new(big.Float).Quo(
		new(big.Float).SetInt(priceNum),
		new(big.Float).SetInt(q192),
	)

	// Adjust by 10^(d0-d1)
	exp := decimals0 - decimals1
	if exp != 0 {
		scale := new(big.Float).SetInt(pow10(abs(exp)))
		if exp > 0 {
			price.Mul(price, scale)
		} else {
			price.Quo(price, scale)
		}
	}

	return price, nil
}

// QuoteSlotPrice estimates the raw-unit output of swapping amountIn against a
// pool at its current slot price. The pool fee (ppm) is applied to the input
// first, then the price. zeroForOne means the input token is the pool's
// token0 (not the caller's notion of sell/buy order).
//
// This is a single-slot approximation: it ignores tick liquidity stepping
// and is only valid for trades small relative to pool depth. Callers sizing
// execution-critical trades must bound the amount with CheckSlotDepth first.
func QuoteSlotPrice(sqrtPriceX96 *big.Int, feePpm uint32, zeroForOne bool, amountIn *big.Int) (*big.Int, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return nil, ErrZeroPrice
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if feePpm >= FeeDenominatorPpm {
		return nil, ErrInvalidFee
	}

	// Fee first: a' = a * (1e6 - feePpm) / 1e6
	afterFee := new(big.Int).Mul(amountIn, big.NewInt(int64(FeeDenominatorPpm-feePpm)))
	afterFee.Div(afterFee, big.NewInt(FeeDenominatorPpm))

	// Then price. Raw price of token1 per token0 is S^2 / 2^192, so:
	//   token0 in: out = a' * S^2 / 2^192
	//   token1 in: out = a' * 2^192 / S^2
	priceNum := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)

	out := new(big.Int)
	if zeroForOne {
		out.Mul(afterFee, priceNum)
		out.Div(out, q192)
	} else {
		out.Mul(afterFee, q192)
		out.Div(out, priceNum)
	}

	if out.Sign() <= 0 {
		return nil, ErrZeroOutput
	}

	return out, nil
}

// CheckSlotDepth rejects trades too large for the single-slot approximation.
// The virtual reserve of the input token at the current price is
// L*2^96/S for token0 and L*S/2^96 for token1; amountIn must not exceed
// maxDepthPpm parts-per-million of that reserve.
func CheckSlotDepth(sqrtPriceX96, liquidity *big.Int, zeroForOne bool, amountIn *big.Int, maxDepthPpm uint32) error {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return ErrZeroPrice
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return ErrZeroLiquidity
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return ErrInvalidAmount
	}
	if maxDepthPpm == 0 || maxDepthPpm > FeeDenominatorPpm {
		maxDepthPpm = FeeDenominatorPpm
	}

	reserve := new(big.Int)
	if zeroForOne {
		reserve.Mul(liquidity, q96)
		reserve.Div(reserve, sqrtPriceX96)
	} else {
		reserve.Mul(liquidity, sqrtPriceX96)
		reserve.Div(reserve, q96)
	}

	limit := new(big.Int).Mul(reserve, big.NewInt(int64(maxDepthPpm)))
	limit.Div(limit, big.NewInt(FeeDenominatorPpm))

	if amountIn.Cmp(limit) > 0 {
		return ErrAmountTooDeep
	}

	return nil
}

// pow10 returns 10^n as *big.Int
func pow10(n int) *big.Int {
	if n < 0 {
		n = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
