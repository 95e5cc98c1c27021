package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/worker"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/resolver"
)

// Fanout queries all venues concurrently and selects the best quote.
// All venues are waited for: a fast bad answer must not beat a slow good
// one.
type Fanout struct {
	routers []Router
	pool    *worker.Pool
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewFanout creates a fanout over the given routers backed by a shared
// worker pool.
func NewFanout(routers []Router, pool *worker.Pool, logger *observability.Logger, metrics *observability.Metrics) *Fanout {
	return &Fanout{
		routers: routers,
		pool:    pool,
		logger:  logger,
		metrics: metrics,
	}
}

// Best returns the quote with the highest output across all venues.
// Every venue failing to quote is the ErrNoQuote outcome; individual
// venue failures are logged and counted but do not fail the fanout.
func (f *Fanout) Best(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*Quote, error) {
	if len(f.routers) == 0 {
		return nil, fmt.Errorf("%w: no venues configured", ErrNoQuote)
	}

	jobs := make([]worker.Job, 0, len(f.routers))
	for _, r := range f.routers {
		router := r
		jobs = append(jobs, worker.Job{
			ID: "quote:" + router.Name(),
			Execute: func(jobCtx context.Context) (interface{}, error) {
				start := time.Now()
				q, err := router.Quote(ctx, tokenIn, tokenOut, amountIn)
				if f.metrics != nil {
					status := "ok"
					if err != nil {
						status = quoteStatus(err)
					}
					f.metrics.RecordQuote(ctx, router.Name(), status, time.Since(start))
				}
				return q, err
			},
		})
	}

	results := f.pool.SubmitAndWait(jobs)

	var best *Quote
	for _, res := range results {
		if res.Err != nil {
			if f.logger != nil {
				f.logger.Debug("venue produced no quote",
					"venue", res.JobID,
					"error", res.Err,
				)
			}
			continue
		}
		q, ok := res.Value.(*Quote)
		if !ok || q == nil {
			continue
		}
		if best == nil || q.AmountOut.Cmp(best.AmountOut) > 0 {
			best = q
		}
	}

	if best == nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrNoQuote
	}
	return best, nil
}

func quoteStatus(err error) string {
	switch {
	case errors.Is(err, resolver.ErrNoPoolFound):
		return "no_pool"
	case errors.Is(err, resolver.ErrPoolUninitialized):
		return "uninitialized"
	case errors.Is(err, resolver.ErrInsufficientLiquidity):
		return "shallow"
	default:
		return "error"
	}
}
