package guard

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/money"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
)

// Plan is a candidate trade ready for the profitability check.
type Plan struct {
	Pair       string
	SellToken  common.Address
	BuyToken   common.Address
	SellAmount *big.Int
	BuyAmount  *big.Int
	GasUnits   uint64
}

// Verdict is the guard's decision with the numbers behind it.
type Verdict struct {
	OK       bool
	GrossUSD money.USD
	GasUSD   money.USD
	NetUSD   money.USD
	Reason   string
}

// Guard evaluates candidate trades against a minimum net USD profit.
type Guard struct {
	converter *Converter
	gas       *GasOracle
	nativeUSD RefPricer // prices the gas token
	gasToken  common.Address
	minProfit money.USD

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Config holds guard configuration.
type Config struct {
	Converter *Converter
	GasOracle *GasOracle
	NativeUSD RefPricer      // USD price source for the gas token
	GasToken  common.Address // wrapped native token address
	MinProfit money.USD
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// New creates a guard.
func New(cfg Config) (*Guard, error) {
	if cfg.Converter == nil {
		return nil, fmt.Errorf("converter is required")
	}
	if cfg.GasOracle == nil {
		return nil, fmt.Errorf("gas oracle is required")
	}
	if cfg.NativeUSD == nil {
		return nil, fmt.Errorf("native token pricer is required")
	}
	return &Guard{
		converter: cfg.Converter,
		gas:       cfg.GasOracle,
		nativeUSD: cfg.NativeUSD,
		gasToken:  cfg.GasToken,
		minProfit: cfg.MinProfit,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// Evaluate prices both legs and gas in USD and applies the profit floor.
// An unpriceable leg returns ErrUnpriceable: the trade is rejected, not
// waved through with a made-up number.
func (g *Guard) Evaluate(ctx context.Context, plan *Plan) (Verdict, error) {
	sellUSD, err := g.converter.ToUSD(ctx, plan.SellToken, plan.SellAmount)
	if err != nil {
		return Verdict{}, fmt.Errorf("sell leg: %w", err)
	}
	buyUSD, err := g.converter.ToUSD(ctx, plan.BuyToken, plan.BuyAmount)
	if err != nil {
		return Verdict{}, fmt.Errorf("buy leg: %w", err)
	}

	gasUSD, err := g.gasCostUSD(ctx, plan.GasUnits)
	if err != nil {
		return Verdict{}, fmt.Errorf("gas cost: %w", err)
	}

	gross := buyUSD.Sub(sellUSD)
	net := money.CalculateProfit(gross, gasUSD)

	verdict := Verdict{
		GrossUSD: gross,
		GasUSD:   gasUSD,
		NetUSD:   net,
	}
	if net.LessThan(g.minProfit) {
		verdict.Reason = "below_min_profit"
	} else {
		verdict.OK = true
		verdict.Reason = "profitable"
	}

	if g.metrics != nil {
		g.metrics.RecordGuardVerdict(ctx, plan.Pair, verdict.Reason, verdict.OK, net.Float64())
	}
	if g.logger != nil {
		g.logger.Debug("guard verdict",
			"pair", plan.Pair,
			"ok", verdict.OK,
			"gross_usd", gross.Float64(),
			"gas_usd", gasUSD.Float64(),
			"net_usd", net.Float64(),
			"min_usd", g.minProfit.Float64(),
		)
	}

	return verdict, nil
}

// gasCostUSD prices the gas for one swap in USD.
func (g *Guard) gasCostUSD(ctx context.Context, gasUnits uint64) (money.USD, error) {
	gasPrice, err := g.gas.Price(ctx)
	if err != nil {
		return 0, err
	}

	ethUSD, err := g.nativeUSD.USDPrice(ctx, g.gasToken)
	if err != nil {
		return 0, err
	}
	if ethUSD <= 0 {
		return 0, fmt.Errorf("%w: non-positive native token price", ErrUnpriceable)
	}
	if g.metrics != nil {
		g.metrics.RecordETHPrice(ctx, ethUSD)
	}

	// cost wei = gasUnits * gasPrice; cents = wei * ethUSD * 100 / 1e18
	costWei := new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasPrice)
	eth := new(big.Float).Quo(new(big.Float).SetInt(costWei), big.NewFloat(1e18))
	cents := new(big.Float).Mul(eth, big.NewFloat(ethUSD*float64(money.USDScale)))
	out, _ := cents.Int64()
	return money.NewUSDFromCents(out), nil
}

// MinProfit returns the configured profit floor.
func (g *Guard) MinProfit() money.USD {
	return g.minProfit
}
