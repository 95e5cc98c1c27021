package gateway

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/semaphore"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/resilience"
)

// nodeClient is the slice of ethclient.Client the gateway uses. Tests
// substitute their own implementation.
type nodeClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// Dialer opens a connection to one RPC URL.
type Dialer func(ctx context.Context, url string) (nodeClient, error)

// DefaultDialer dials with ethclient.
func DefaultDialer(ctx context.Context, url string) (nodeClient, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return client, nil
}

// Endpoint is one RPC endpoint with its provider limits enforced locally:
// a token bucket for request rate, a semaphore for in-flight concurrency,
// and a circuit breaker for health.
type Endpoint struct {
	url     string
	client  nodeClient
	limiter *resilience.RateLimiter
	sem     *semaphore.Weighted
	breaker *resilience.CircuitBreaker
}

// EndpointConfig describes one endpoint and its limits.
type EndpointConfig struct {
	URL            string
	RatePerSecond  int
	MaxConcurrency int
}

func newEndpoint(client nodeClient, cfg EndpointConfig, onStateChange func(url string, to resilience.State)) *Endpoint {
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 1
	}

	return &Endpoint{
		url:     cfg.URL,
		client:  client,
		limiter: resilience.NewRateLimiter(cfg.RatePerSecond),
		sem:     semaphore.NewWeighted(int64(maxConc)),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             cfg.URL,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Cooldown:         30 * time.Second,
			OnStateChange: func(_, to resilience.State) {
				if onStateChange != nil {
					onStateChange(cfg.URL, to)
				}
			},
		}),
	}
}

// URL returns the endpoint URL.
func (e *Endpoint) URL() string {
	return e.url
}

// Healthy reports whether the endpoint's breaker would admit a call.
func (e *Endpoint) Healthy() bool {
	return e.breaker.State() != resilience.StateOpen
}

// do runs one call against the endpoint under its limits. Wait order is
// breaker first (fail fast), then rate token, then concurrency slot.
func (e *Endpoint) do(ctx context.Context, fn func(nodeClient) error) (waited bool, err error) {
	if err := e.breaker.Allow(); err != nil {
		return false, err
	}

	waited = !e.limiter.Allow()
	if waited {
		if err := e.limiter.Wait(ctx); err != nil {
			return waited, err
		}
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return waited, err
	}
	defer e.sem.Release(1)

	err = fn(e.client)
	e.breaker.Record(err)
	return waited, err
}

// close releases the underlying connection.
func (e *Endpoint) close() {
	if e.client != nil {
		e.client.Close()
	}
}
