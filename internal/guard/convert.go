// Package guard decides whether a candidate trade clears the USD
// profitability bar after gas.
package guard

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/money"
)

// ErrUnpriceable indicates a token amount could not be converted to USD.
// Callers must treat this as "do not trade", never as zero or one dollar.
var ErrUnpriceable = errors.New("token amount not priceable in USD")

// DecimalsSource resolves token decimals.
type DecimalsSource interface {
	Decimals(ctx context.Context, token common.Address) (int, error)
}

// RefPricer returns the USD price of one whole token.
type RefPricer interface {
	USDPrice(ctx context.Context, token common.Address) (float64, error)
}

// Converter converts raw token amounts to USD. Stablecoins convert
// directly from their decimals; other tokens need a reference price.
type Converter struct {
	stables  map[common.Address]struct{}
	decimals DecimalsSource
	pricer   RefPricer
}

// NewConverter creates a converter. pricer may be nil, in which case only
// stablecoins are priceable.
func NewConverter(stables []common.Address, decimals DecimalsSource, pricer RefPricer) *Converter {
	set := make(map[common.Address]struct{}, len(stables))
	for _, s := range stables {
		set[s] = struct{}{}
	}
	return &Converter{
		stables:  set,
		decimals: decimals,
		pricer:   pricer,
	}
}

// IsStable reports whether the token is in the configured stablecoin set.
func (c *Converter) IsStable(token common.Address) bool {
	_, ok := c.stables[token]
	return ok
}

// ToUSD converts a raw token amount to USD cents.
func (c *Converter) ToUSD(ctx context.Context, token common.Address, amount *big.Int) (money.USD, error) {
	if amount == nil || amount.Sign() < 0 {
		return 0, fmt.Errorf("%w: invalid amount", ErrUnpriceable)
	}

	dec, err := c.decimals.Decimals(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%w: decimals for %s: %v", ErrUnpriceable, token.Hex(), err)
	}

	if c.IsStable(token) {
		// cents = amount * 100 / 10^dec
		cents := new(big.Int).Mul(amount, big.NewInt(int64(money.USDScale)))
		cents.Quo(cents, pow10(dec))
		if !cents.IsInt64() {
			return 0, fmt.Errorf("%w: amount overflows USD range", ErrUnpriceable)
		}
		return money.NewUSDFromCents(cents.Int64()), nil
	}

	if c.pricer == nil {
		return 0, fmt.Errorf("%w: no reference price for %s", ErrUnpriceable, token.Hex())
	}
	price, err := c.pricer.USDPrice(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnpriceable, token.Hex(), err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: non-positive reference price for %s", ErrUnpriceable, token.Hex())
	}

	// cents = amount * price * 100 / 10^dec, in big.Float to survive
	// 18-decimal amounts.
	whole := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(pow10(dec)))
	cents := new(big.Float).Mul(whole, big.NewFloat(price*float64(money.USDScale)))
	out, _ := cents.Int64()
	return money.NewUSDFromCents(out), nil
}

// FromUSD converts a USD amount to a raw token amount, used to size a
// trade from a configured notional.
func (c *Converter) FromUSD(ctx context.Context, token common.Address, usd money.USD) (*big.Int, error) {
	if usd.IsNegative() {
		return nil, fmt.Errorf("%w: negative notional", ErrUnpriceable)
	}

	dec, err := c.decimals.Decimals(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: decimals for %s: %v", ErrUnpriceable, token.Hex(), err)
	}

	if c.IsStable(token) {
		// amount = cents * 10^dec / 100
		amount := new(big.Int).Mul(big.NewInt(usd.Cents()), pow10(dec))
		amount.Quo(amount, big.NewInt(int64(money.USDScale)))
		return amount, nil
	}

	if c.pricer == nil {
		return nil, fmt.Errorf("%w: no reference price for %s", ErrUnpriceable, token.Hex())
	}
	price, err := c.pricer.USDPrice(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnpriceable, token.Hex(), err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: non-positive reference price for %s", ErrUnpriceable, token.Hex())
	}

	whole := new(big.Float).Quo(big.NewFloat(usd.Float64()), big.NewFloat(price))
	raw := new(big.Float).Mul(whole, new(big.Float).SetInt(pow10(dec)))
	out, _ := raw.Int(nil)
	return out, nil
}

func pow10(n int) *big.Int {
	if n < 0 {
		n = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
