// Package engine runs the trading loop: one pair per tick through sizing,
// quoting, the profitability guard, and execution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/executor"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/guard"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/money"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/notification"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/quote"
)

// Pair is one tradeable pair: sell the base token for the quote token.
type Pair struct {
	Name      string
	SellToken common.Address
	BuyToken  common.Address
}

// Quoter returns the best quote across all venues.
type Quoter interface {
	Best(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*quote.Quote, error)
}

// Evaluator applies the profitability guard to a candidate trade.
type Evaluator interface {
	Evaluate(ctx context.Context, plan *guard.Plan) (guard.Verdict, error)
}

// Trader drives an approved trade to a terminal outcome.
type Trader interface {
	Execute(ctx context.Context, pair string, q *quote.Quote) (*executor.Result, error)
}

// Sizer converts the configured USD notional into a raw sell amount.
type Sizer interface {
	FromUSD(ctx context.Context, token common.Address, usd money.USD) (*big.Int, error)
}

// Stats are cumulative counters for the run, readable while the loop runs.
type Stats struct {
	Ticks        uint64
	Quotes       uint64
	GuardRejects uint64
	Executed     uint64
	Succeeded    uint64
	Failed       uint64
	Unconfirmed  uint64
	NetProfitUSD money.USD
}

// Config holds engine configuration.
type Config struct {
	Pairs        []Pair
	NotionalUSD  money.USD
	TickInterval time.Duration
	TickBudget   time.Duration
	DryRun       bool

	Quoter    Quoter
	Guard     Evaluator
	Trader    Trader
	Sizer     Sizer
	Publisher notification.Publisher

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Engine evaluates pairs round-robin on a fixed tick. Any single pair's
// failure is logged and skipped; the loop never halts on a bad venue.
type Engine struct {
	pairs        []Pair
	notional     money.USD
	tickInterval time.Duration
	tickBudget   time.Duration
	dryRun       bool

	quoter    Quoter
	guard     Evaluator
	trader    Trader
	sizer     Sizer
	publisher notification.Publisher

	next int

	mu    sync.Mutex
	stats Stats

	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Pairs) == 0 {
		return nil, fmt.Errorf("at least one pair is required")
	}
	if cfg.Quoter == nil || cfg.Guard == nil || cfg.Sizer == nil {
		return nil, fmt.Errorf("quoter, guard, and sizer are required")
	}
	if cfg.Trader == nil && !cfg.DryRun {
		return nil, fmt.Errorf("trader is required unless dry-run")
	}
	if cfg.NotionalUSD.IsZero() || cfg.NotionalUSD.IsNegative() {
		return nil, fmt.Errorf("notional must be positive")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 3 * time.Second
	}
	if cfg.TickBudget <= 0 {
		cfg.TickBudget = 10 * time.Second
	}

	return &Engine{
		pairs:        cfg.Pairs,
		notional:     cfg.NotionalUSD,
		tickInterval: cfg.TickInterval,
		tickBudget:   cfg.TickBudget,
		dryRun:       cfg.DryRun,
		quoter:       cfg.Quoter,
		guard:        cfg.Guard,
		trader:       cfg.Trader,
		sizer:        cfg.Sizer,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}, nil
}

// Run blocks until the context is cancelled, evaluating one pair per tick.
func (e *Engine) Run(ctx context.Context) error {
	if e.logger != nil {
		e.logger.Info("engine started",
			"pairs", len(e.pairs),
			"notional_usd", e.notional.Float64(),
			"tick_interval", e.tickInterval.String(),
			"dry_run", e.dryRun,
		)
	}

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if e.logger != nil {
				e.logger.Info("engine stopped", "stats", fmt.Sprintf("%+v", e.Stats()))
			}
			return ctx.Err()
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick evaluates the next pair under the tick budget. A tick that blows
// the budget is abandoned, not allowed to stall the loop.
func (e *Engine) tick(ctx context.Context) {
	pair := e.pairs[e.next%len(e.pairs)]
	e.next++

	e.mu.Lock()
	e.stats.Ticks++
	e.mu.Unlock()

	tickCtx, cancel := context.WithTimeout(ctx, e.tickBudget)
	defer cancel()

	if err := e.evaluatePair(ctx, tickCtx, pair); err != nil && e.logger != nil {
		e.logger.Warn("pair evaluation failed", "pair", pair.Name, "error", err)
	}
}

// evaluatePair runs sizing, quoting, and the guard under the tick
// budget. Execution runs under the outer run context instead: once a
// transaction may be in flight, cutting it off mid-confirm would report
// unconfirmed for trades that land moments later. The executor bounds
// its own confirm polling.
func (e *Engine) evaluatePair(runCtx, ctx context.Context, pair Pair) error {
	amountIn, err := e.sizer.FromUSD(ctx, pair.SellToken, e.notional)
	if err != nil {
		return fmt.Errorf("sizing: %w", err)
	}

	best, err := e.quoter.Best(ctx, pair.SellToken, pair.BuyToken, amountIn)
	if err != nil {
		if errors.Is(err, quote.ErrNoQuote) {
			if e.logger != nil {
				e.logger.Debug("no quote", "pair", pair.Name)
			}
			return nil
		}
		return fmt.Errorf("quoting: %w", err)
	}

	e.mu.Lock()
	e.stats.Quotes++
	e.mu.Unlock()

	verdict, err := e.guard.Evaluate(ctx, &guard.Plan{
		Pair:       pair.Name,
		SellToken:  pair.SellToken,
		BuyToken:   pair.BuyToken,
		SellAmount: best.AmountIn,
		BuyAmount:  best.AmountOut,
		GasUnits:   best.GasUnits,
	})
	if err != nil {
		if errors.Is(err, guard.ErrUnpriceable) {
			if e.logger != nil {
				e.logger.Warn("pair unpriceable", "pair", pair.Name, "error", err)
			}
			return nil
		}
		return fmt.Errorf("guard: %w", err)
	}
	if !verdict.OK {
		e.mu.Lock()
		e.stats.GuardRejects++
		e.mu.Unlock()
		return nil
	}

	if e.dryRun {
		if e.logger != nil {
			e.logger.Info("dry run, skipping execution",
				"pair", pair.Name,
				"venue", best.Venue,
				"net_usd", verdict.NetUSD.Float64(),
			)
		}
		e.publish(ctx, pair, best, verdict, &executor.Result{Reason: "dry_run"}, "dry_run")
		return nil
	}

	return e.execute(runCtx, pair, best, verdict)
}

func (e *Engine) execute(ctx context.Context, pair Pair, best *quote.Quote, verdict guard.Verdict) error {
	start := time.Now()
	res, err := e.trader.Execute(ctx, pair.Name, best)
	elapsed := time.Since(start)

	outcome := res.Outcome.String()
	if e.metrics != nil {
		e.metrics.RecordTrade(ctx, pair.Name, outcome, elapsed, verdict.NetUSD.Float64())
	}

	e.mu.Lock()
	e.stats.Executed++
	switch res.Outcome {
	case executor.OutcomeSuccess:
		e.stats.Succeeded++
		e.stats.NetProfitUSD = e.stats.NetProfitUSD.Add(verdict.NetUSD)
	case executor.OutcomeUnconfirmed:
		e.stats.Unconfirmed++
	default:
		e.stats.Failed++
	}
	e.mu.Unlock()

	e.publish(ctx, pair, best, verdict, res, outcome)

	if err != nil {
		if e.logger != nil {
			e.logger.Warn("trade did not succeed",
				"pair", pair.Name,
				"venue", best.Venue,
				"outcome", outcome,
				"reason", res.Reason,
				"attempts", res.Attempts,
				"error", err,
			)
		}
		return nil
	}

	if e.logger != nil {
		e.logger.Info("trade executed",
			"pair", pair.Name,
			"venue", best.Venue,
			"tx", res.TxHash.Hex(),
			"attempts", res.Attempts,
			"net_usd", verdict.NetUSD.Float64(),
			"duration", elapsed.String(),
		)
	}
	return nil
}

// publish emits the trade event best-effort; delivery failure is logged
// and never fails the trade.
func (e *Engine) publish(ctx context.Context, pair Pair, best *quote.Quote, verdict guard.Verdict, res *executor.Result, outcome string) {
	if e.publisher == nil {
		return
	}

	event := &notification.TradeEvent{
		Pair:        pair.Name,
		Venue:       best.Venue,
		Outcome:     outcome,
		Reason:      res.Reason,
		GrossUSD:    verdict.GrossUSD.Float64(),
		GasUSD:      verdict.GasUSD.Float64(),
		NetUSD:      verdict.NetUSD.Float64(),
		Attempts:    res.Attempts,
		SlippageBps: res.SlippageBps,
		Timestamp:   time.Now().UTC(),
	}
	if res.TxHash != (common.Hash{}) {
		event.TxHash = res.TxHash.Hex()
	}

	if err := e.publisher.PublishTrade(ctx, event); err != nil && e.logger != nil {
		e.logger.Warn("trade event publish failed", "pair", pair.Name, "error", err)
	}
}

// Stats returns a snapshot of the run counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
