package amm

import "errors"

var (
	// ErrZeroPrice is returned when a pool reports a zero sqrt price
	ErrZeroPrice = errors.New("amm: pool has zero price")

	// ErrZeroLiquidity is returned when a pool reports zero liquidity
	ErrZeroLiquidity = errors.New("amm: pool has zero liquidity")

	// ErrZeroReserves is returned when a constant-product pool has empty reserves
	ErrZeroReserves = errors.New("amm: pool has zero reserves")

	// ErrZeroOutput is returned when a swap estimate rounds to zero or below
	ErrZeroOutput = errors.New("amm: computed output is zero")

	// ErrInvalidAmount is returned for negative input amounts
	ErrInvalidAmount = errors.New("amm: invalid input amount")

	// ErrInvalidFee is returned when a fee parameter exceeds its denominator
	ErrInvalidFee = errors.New("amm: invalid fee")

	// ErrAmountTooDeep is returned when a trade is too large relative to pool
	// depth for the single-slot estimate to be trustworthy
	ErrAmountTooDeep = errors.New("amm: amount too large for slot-price estimate")
)
