// Package gateway multiplexes chain RPC calls across a set of rate-limited
// endpoints with rotation, health tracking, and typed error classification.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/resilience"
)

// Gateway fans chain calls out over multiple endpoints. Every read and
// write the rest of the system performs goes through here, so provider
// quotas are enforced in exactly one place.
type Gateway struct {
	endpoints []*Endpoint
	next      atomic.Uint64
	chainID   *big.Int
	retry     resilience.Policy

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Config holds gateway configuration.
type Config struct {
	ChainID   int64
	Endpoints []EndpointConfig
	// Retry governs how many full rotation passes a call makes when every
	// endpoint is rate limited or unreachable. The classifier is always
	// IsRetryable; only attempts and delays are tunable.
	Retry   resilience.Policy
	Dialer  Dialer
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// New dials all configured endpoints and returns a gateway. Endpoints
// that fail to dial are skipped with a warning; at least one must come up.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if cfg.ChainID <= 0 {
		return nil, fmt.Errorf("invalid chain id %d", cfg.ChainID)
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = DefaultDialer
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 4
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 250 * time.Millisecond
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = 5 * time.Second
	}
	if retry.Jitter <= 0 {
		retry.Jitter = 0.2
	}
	retry.Retryable = IsRetryable

	g := &Gateway{
		chainID: big.NewInt(cfg.ChainID),
		retry:   retry,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}

	onStateChange := func(url string, to resilience.State) {
		if g.logger != nil {
			g.logger.Warn("endpoint circuit state changed", "endpoint", url, "state", to.String())
		}
		if g.metrics != nil {
			g.metrics.SetCircuitBreakerState(context.Background(), url, int64(to))
			g.metrics.RecordRPCEndpointHealth(context.Background(), url, to != resilience.StateOpen)
		}
	}

	for _, epCfg := range cfg.Endpoints {
		client, err := dialer(ctx, epCfg.URL)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("skipping endpoint that failed to dial", "endpoint", epCfg.URL, "error", err)
			}
			continue
		}
		g.endpoints = append(g.endpoints, newEndpoint(client, epCfg, onStateChange))
	}

	if len(g.endpoints) == 0 {
		return nil, fmt.Errorf("%w: none dialed successfully", ErrNoEndpoints)
	}

	return g, nil
}

// ChainID returns the configured chain ID. It is configuration, not a
// per-call chain query.
func (g *Gateway) ChainID() *big.Int {
	return new(big.Int).Set(g.chainID)
}

// Endpoints returns the number of live endpoints.
func (g *Gateway) Endpoints() int {
	return len(g.endpoints)
}

// Close releases all endpoint connections.
func (g *Gateway) Close() {
	for _, ep := range g.endpoints {
		ep.close()
	}
}

// do runs fn against the endpoints. One rotation pass tries each
// endpoint once; if the whole pass fails on rate limits or network
// trouble, the retry policy backs off with jitter and runs another pass
// until attempts are exhausted.
func (g *Gateway) do(ctx context.Context, method string, fn func(nodeClient) error) error {
	if len(g.endpoints) == 0 {
		return ErrNoEndpoints
	}
	return g.retry.Do(ctx, func(ctx context.Context) error {
		return g.rotate(ctx, method, fn)
	})
}

// rotate runs fn against endpoints in rotation order. Rate limits and
// open breakers rotate to the next endpoint; non-transient errors return
// immediately since another endpoint would fail the same way.
func (g *Gateway) rotate(ctx context.Context, method string, fn func(nodeClient) error) error {
	start := g.next.Add(1)
	var lastErr error

	for i := 0; i < len(g.endpoints); i++ {
		ep := g.endpoints[(start+uint64(i))%uint64(len(g.endpoints))]

		callStart := time.Now()
		waited, err := ep.do(ctx, fn)

		if waited && g.metrics != nil {
			g.metrics.RecordRateLimitWait(ctx, ep.url)
		}

		if err == nil {
			if g.metrics != nil {
				g.metrics.RecordRPCCall(ctx, ep.url, method, "ok", time.Since(callStart))
			}
			return nil
		}

		class := Classify(err)
		if g.metrics != nil {
			g.metrics.RecordRPCCall(ctx, ep.url, method, class.String(), time.Since(callStart))
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch class {
		case ClassRateLimited:
			lastErr = fmt.Errorf("%w: %s: %v", ErrRateLimited, ep.url, err)
		case ClassNetworkTransient:
			lastErr = fmt.Errorf("%w: %s: %v", ErrNetworkTransient, ep.url, err)
		default:
			if errors.Is(err, resilience.ErrCircuitOpen) {
				lastErr = err
				continue
			}
			// Deterministic failure: rotating endpoints cannot help.
			return err
		}

		if g.logger != nil {
			g.logger.Debug("rotating endpoint after failure",
				"endpoint", ep.url,
				"method", method,
				"class", class.String(),
			)
		}
	}

	if lastErr != nil {
		// Double-wrap so the retry classifier still sees the failure class.
		return fmt.Errorf("%w: %w", ErrAllEndpointsFailed, lastErr)
	}
	return ErrAllEndpointsFailed
}

// CallContract executes a read-only contract call.
func (g *Gateway) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := g.do(ctx, "eth_call", func(c nodeClient) error {
		var callErr error
		out, callErr = c.CallContract(ctx, msg, blockNumber)
		return callErr
	})
	return out, err
}

// SuggestGasPrice returns the current suggested gas price.
func (g *Gateway) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := g.do(ctx, "eth_gasPrice", func(c nodeClient) error {
		var callErr error
		out, callErr = c.SuggestGasPrice(ctx)
		return callErr
	})
	return out, err
}

// TransactionReceipt fetches a transaction receipt.
func (g *Gateway) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var out *types.Receipt
	err := g.do(ctx, "eth_getTransactionReceipt", func(c nodeClient) error {
		var callErr error
		out, callErr = c.TransactionReceipt(ctx, txHash)
		return callErr
	})
	return out, err
}

// SendTransaction broadcasts a signed transaction.
func (g *Gateway) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return g.do(ctx, "eth_sendRawTransaction", func(c nodeClient) error {
		return c.SendTransaction(ctx, tx)
	})
}

// PendingNonceAt returns the next nonce for an account including pending
// transactions.
func (g *Gateway) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var out uint64
	err := g.do(ctx, "eth_getTransactionCount", func(c nodeClient) error {
		var callErr error
		out, callErr = c.PendingNonceAt(ctx, account)
		return callErr
	})
	return out, err
}

// BalanceAt returns the native token balance of an account.
func (g *Gateway) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var out *big.Int
	err := g.do(ctx, "eth_getBalance", func(c nodeClient) error {
		var callErr error
		out, callErr = c.BalanceAt(ctx, account, blockNumber)
		return callErr
	})
	return out, err
}

// HeaderByNumber fetches a block header, nil for latest.
func (g *Gateway) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var out *types.Header
	err := g.do(ctx, "eth_getBlockByNumber", func(c nodeClient) error {
		var callErr error
		out, callErr = c.HeaderByNumber(ctx, number)
		return callErr
	})
	return out, err
}
