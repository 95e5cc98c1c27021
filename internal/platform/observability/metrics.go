// Package observability provides logging, metrics, and tracing utilities.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// RPC gateway metrics
	RPCCalls          metric.Int64Counter
	RPCDuration       metric.Float64Histogram
	RPCEndpointHealth metric.Int64Gauge
	RateLimitWaits    metric.Int64Counter

	// Quote metrics
	QuoteCalls    metric.Int64Counter
	QuoteDuration metric.Float64Histogram

	// Resolver / cache metrics
	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	NegativeCacheHits metric.Int64Counter

	// Guard metrics
	GuardVerdicts metric.Int64Counter
	NetProfitUSD  metric.Float64Histogram

	// Execution metrics
	TradesExecuted      metric.Int64Counter
	TradeDuration       metric.Float64Histogram
	ProfitRealizedUSD   metric.Float64Counter
	SlippageEscalations metric.Int64Counter
	ApprovalsSent       metric.Int64Counter

	// Gas and pricing gauges
	GasPriceGwei metric.Float64Gauge
	ETHPriceUSD  metric.Float64Gauge

	// Circuit breaker metrics
	CircuitBreakerState metric.Int64Gauge

	// Error metrics
	Errors metric.Int64Counter

	// Prometheus exporter for HTTP handler
	exporter *prometheus.Exporter
}

// NewMetrics creates a new Metrics instance
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	m := &Metrics{
		meter:    provider.Meter(serviceName),
		exporter: exporter,
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

// initMetrics initializes all metric instruments
func (m *Metrics) initMetrics() error {
	var err error

	m.RPCCalls, err = m.meter.Int64Counter(
		"trader.rpc.calls",
		metric.WithDescription("Total RPC calls by endpoint, method and status"),
	)
	if err != nil {
		return err
	}

	m.RPCDuration, err = m.meter.Float64Histogram(
		"trader.rpc.duration",
		metric.WithDescription("RPC call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.RPCEndpointHealth, err = m.meter.Int64Gauge(
		"trader.rpc.endpoint.health",
		metric.WithDescription("RPC endpoint health status (1=healthy, 0=unhealthy)"),
	)
	if err != nil {
		return err
	}

	m.RateLimitWaits, err = m.meter.Int64Counter(
		"trader.rpc.ratelimit.waits",
		metric.WithDescription("Calls that had to wait for a rate limit token"),
	)
	if err != nil {
		return err
	}

	m.QuoteCalls, err = m.meter.Int64Counter(
		"trader.quote.calls",
		metric.WithDescription("Quote attempts by router and status"),
	)
	if err != nil {
		return err
	}

	m.QuoteDuration, err = m.meter.Float64Histogram(
		"trader.quote.duration",
		metric.WithDescription("Quote fan-out duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"trader.cache.hits",
		metric.WithDescription("Total cache hits"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"trader.cache.misses",
		metric.WithDescription("Total cache misses"),
	)
	if err != nil {
		return err
	}

	m.NegativeCacheHits, err = m.meter.Int64Counter(
		"trader.negative_cache.hits",
		metric.WithDescription("Lookups skipped because a prior negative result was cached"),
	)
	if err != nil {
		return err
	}

	m.GuardVerdicts, err = m.meter.Int64Counter(
		"trader.guard.verdicts",
		metric.WithDescription("Profitability guard verdicts by result"),
	)
	if err != nil {
		return err
	}

	m.NetProfitUSD, err = m.meter.Float64Histogram(
		"trader.guard.net_profit.usd",
		metric.WithDescription("Net profit estimate at guard time in USD"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return err
	}

	m.TradesExecuted, err = m.meter.Int64Counter(
		"trader.trades.executed",
		metric.WithDescription("Trade attempts by outcome"),
	)
	if err != nil {
		return err
	}

	m.TradeDuration, err = m.meter.Float64Histogram(
		"trader.trades.duration",
		metric.WithDescription("End-to-end trade duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.ProfitRealizedUSD, err = m.meter.Float64Counter(
		"trader.profit.realized.usd",
		metric.WithDescription("Cumulative realized profit in USD"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return err
	}

	m.SlippageEscalations, err = m.meter.Int64Counter(
		"trader.trades.slippage_escalations",
		metric.WithDescription("Retries that widened slippage tolerance"),
	)
	if err != nil {
		return err
	}

	m.ApprovalsSent, err = m.meter.Int64Counter(
		"trader.trades.approvals",
		metric.WithDescription("ERC-20 approval transactions sent"),
	)
	if err != nil {
		return err
	}

	m.GasPriceGwei, err = m.meter.Float64Gauge(
		"trader.gas.price.gwei",
		metric.WithDescription("Current gas price in gwei"),
	)
	if err != nil {
		return err
	}

	m.ETHPriceUSD, err = m.meter.Float64Gauge(
		"trader.eth.price.usd",
		metric.WithDescription("Current ETH price in USD"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return err
	}

	m.CircuitBreakerState, err = m.meter.Int64Gauge(
		"trader.circuit_breaker.state",
		metric.WithDescription("Circuit breaker state (0=closed, 1=open, 2=half-open)"),
	)
	if err != nil {
		return err
	}

	m.Errors, err = m.meter.Int64Counter(
		"trader.errors",
		metric.WithDescription("Total errors by classification"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordRPCCall records one RPC call against an endpoint.
func (m *Metrics) RecordRPCCall(ctx context.Context, endpoint, method, status string, duration time.Duration) {
	if m.RPCCalls == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("method", method),
		attribute.String("status", status),
	}
	m.RPCCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.RPCDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRPCEndpointHealth records endpoint health status.
func (m *Metrics) RecordRPCEndpointHealth(ctx context.Context, endpoint string, healthy bool) {
	if m.RPCEndpointHealth == nil {
		return
	}
	val := int64(0)
	if healthy {
		val = 1
	}
	m.RPCEndpointHealth.Record(ctx, val, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

// RecordRateLimitWait records a call that blocked on the token bucket.
func (m *Metrics) RecordRateLimitWait(ctx context.Context, endpoint string) {
	if m.RateLimitWaits == nil {
		return
	}
	m.RateLimitWaits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

// RecordQuote records a quote attempt for one router.
func (m *Metrics) RecordQuote(ctx context.Context, router, status string, duration time.Duration) {
	if m.QuoteCalls == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("router", router),
		attribute.String("status", status),
	}
	m.QuoteCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.QuoteDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(ctx context.Context, layer string) {
	if m.CacheHits == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(ctx context.Context, layer string) {
	if m.CacheMisses == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordNegativeCacheHit records a lookup short-circuited by the negative cache.
func (m *Metrics) RecordNegativeCacheHit(ctx context.Context, outcome string) {
	if m.NegativeCacheHits == nil {
		return
	}
	m.NegativeCacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordGuardVerdict records a profitability guard decision.
func (m *Metrics) RecordGuardVerdict(ctx context.Context, pair, reason string, ok bool, netUSD float64) {
	if m.GuardVerdicts == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pair", pair),
		attribute.String("reason", reason),
		attribute.Bool("ok", ok),
	}
	m.GuardVerdicts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.NetProfitUSD.Record(ctx, netUSD, metric.WithAttributes(attribute.String("pair", pair)))
}

// RecordTrade records a completed trade attempt.
func (m *Metrics) RecordTrade(ctx context.Context, pair, outcome string, duration time.Duration, profitUSD float64) {
	if m.TradesExecuted == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pair", pair),
		attribute.String("outcome", outcome),
	}
	m.TradesExecuted.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.TradeDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if outcome == "success" && profitUSD > 0 {
		m.ProfitRealizedUSD.Add(ctx, profitUSD, metric.WithAttributes(attribute.String("pair", pair)))
	}
}

// RecordSlippageEscalation records a retry that widened slippage.
func (m *Metrics) RecordSlippageEscalation(ctx context.Context, pair string, bps int64) {
	if m.SlippageEscalations == nil {
		return
	}
	m.SlippageEscalations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pair", pair),
		attribute.Int64("slippage_bps", bps),
	))
}

// RecordApproval records an approval transaction.
func (m *Metrics) RecordApproval(ctx context.Context, token string) {
	if m.ApprovalsSent == nil {
		return
	}
	m.ApprovalsSent.Add(ctx, 1, metric.WithAttributes(attribute.String("token", token)))
}

// RecordGasPrice records the current gas price in gwei.
func (m *Metrics) RecordGasPrice(ctx context.Context, gwei float64) {
	if m.GasPriceGwei == nil {
		return
	}
	m.GasPriceGwei.Record(ctx, gwei)
}

// RecordETHPrice records the current ETH price in USD
func (m *Metrics) RecordETHPrice(ctx context.Context, priceUSD float64) {
	if m.ETHPriceUSD == nil {
		return
	}
	m.ETHPriceUSD.Record(ctx, priceUSD)
}

// SetCircuitBreakerState sets circuit breaker state
// 0 = closed, 1 = open, 2 = half-open
func (m *Metrics) SetCircuitBreakerState(ctx context.Context, endpoint string, state int64) {
	if m.CircuitBreakerState == nil {
		return
	}
	m.CircuitBreakerState.Record(ctx, state, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordError records an error
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	if m.Errors == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("type", errorType)))
}

// Handler returns the HTTP handler for Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
