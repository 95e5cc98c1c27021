package amm

import "math/big"

// FeeDenominatorBps is the denominator for constant-product fees
// (fees are expressed in basis points, e.g. 30 = 0.30%).
const FeeDenominatorBps = 10_000

// ConstantProductOut computes the output of a constant-product swap:
//
//	out = floor(a*(10000-f)*Rout / (Rin*10000 + a*(10000-f)))
//
// A zero amountIn yields zero output; empty reserves or an estimate that
// rounds to zero for a positive input are explicit errors, never a zero
// quote.
func ConstantProductOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if feeBps >= FeeDenominatorBps {
		return nil, ErrInvalidFee
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrZeroReserves
	}
	if amountIn.Sign() == 0 {
		return big.NewInt(0), nil
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(FeeDenominatorBps-feeBps)))

	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)

	denominator := new(big.Int).Mul(reserveIn, big.NewInt(FeeDenominatorBps))
	denominator.Add(denominator, amountInWithFee)

	out := new(big.Int).Div(numerator, denominator)
	if out.Sign() <= 0 {
		return nil, ErrZeroOutput
	}

	return out, nil
}
