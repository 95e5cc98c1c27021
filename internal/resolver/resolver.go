// Package resolver discovers pools and token metadata on chain and caches
// the results, including negative results for pairs that have no pool.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/cache"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
)

var (
	// ErrNoPoolFound indicates the factory has no pool for the pair.
	ErrNoPoolFound = errors.New("no pool found for pair")

	// ErrPoolUninitialized indicates the pool exists but has never been
	// initialized (zero price or zero reserves).
	ErrPoolUninitialized = errors.New("pool uninitialized")

	// ErrInsufficientLiquidity indicates the pool is too shallow to trade.
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
)

// metaTTL is how long immutable pool metadata (address, token ordering)
// stays in the positive cache.
const metaTTL = 24 * time.Hour

// defaultDecimals is assumed when every resolution strategy fails.
const defaultDecimals = 18

// usdDecimals is assumed for tokens whose symbol looks USD-pegged.
const usdDecimals = 6

// ContractCaller executes read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// V3Pool is the observed state of a concentrated-liquidity pool.
type V3Pool struct {
	Address      common.Address
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
}

// V2Pair is the observed state of a constant-product pair.
type V2Pair struct {
	Address  common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// poolMeta is the immutable part of a pool, kept in the positive cache.
type poolMeta struct {
	Address string `json:"address"`
	Token0  string `json:"token0"`
	Token1  string `json:"token1"`
}

// Config holds resolver configuration.
type Config struct {
	Caller            ContractCaller
	DecimalsOverrides map[string]int // lowercased address -> decimals
	USDSymbolHints    []string
	MinPoolLiquidity  *big.Int // v3 liquidity floor, nil disables
	NegativeTTL       cache.NegativeTTLPolicy
	PoolCache         cache.Cache // positive cache for pool metadata, optional
	DecimalsCacheSize int
	Logger            *observability.Logger
	Metrics           *observability.Metrics
}

// Resolver resolves pools and token metadata with caching on every path.
type Resolver struct {
	caller    ContractCaller
	overrides map[string]int
	usdHints  map[string]struct{}
	minLiq    *big.Int

	decimals  *lru.Cache[common.Address, int]
	poolCache cache.Cache
	negative  *cache.NegativeCache

	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates a resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Caller == nil {
		return nil, fmt.Errorf("contract caller is required")
	}

	size := cfg.DecimalsCacheSize
	if size <= 0 {
		size = 1024
	}
	decimalsCache, err := lru.New[common.Address, int](size)
	if err != nil {
		return nil, fmt.Errorf("decimals cache: %w", err)
	}

	overrides := make(map[string]int, len(cfg.DecimalsOverrides))
	for addr, dec := range cfg.DecimalsOverrides {
		overrides[strings.ToLower(addr)] = dec
	}

	hints := make(map[string]struct{}, len(cfg.USDSymbolHints))
	for _, h := range cfg.USDSymbolHints {
		hints[strings.ToUpper(h)] = struct{}{}
	}

	return &Resolver{
		caller:    cfg.Caller,
		overrides: overrides,
		usdHints:  hints,
		minLiq:    cfg.MinPoolLiquidity,
		decimals:  decimalsCache,
		poolCache: cfg.PoolCache,
		negative:  cache.NewNegativeCache(cfg.NegativeTTL),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// SetNegativeClock overrides the negative cache clock. Intended for tests.
func (r *Resolver) SetNegativeClock(now func() time.Time) {
	r.negative.SetClock(now)
}

// call packs and executes a read-only method against a contract.
func (r *Resolver) call(ctx context.Context, to common.Address, contractABI callABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, err
	}

	vals, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

// Decimals resolves a token's decimals: configured override, then cache,
// then the token contract, then a USD-symbol heuristic, then 18.
func (r *Resolver) Decimals(ctx context.Context, token common.Address) (int, error) {
	if dec, ok := r.overrides[strings.ToLower(token.Hex())]; ok {
		return dec, nil
	}

	if dec, ok := r.decimals.Get(token); ok {
		if r.metrics != nil {
			r.metrics.RecordCacheHit(ctx, "decimals")
		}
		return dec, nil
	}
	if r.metrics != nil {
		r.metrics.RecordCacheMiss(ctx, "decimals")
	}

	vals, err := r.call(ctx, token, erc20ABI, "decimals")
	if err == nil && len(vals) == 1 {
		if dec, ok := vals[0].(uint8); ok {
			r.decimals.Add(token, int(dec))
			return int(dec), nil
		}
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	// decimals() failed: fall back to the symbol heuristic, then 18.
	dec := defaultDecimals
	if symbol, symErr := r.Symbol(ctx, token); symErr == nil && r.looksUSD(symbol) {
		dec = usdDecimals
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	if r.logger != nil {
		r.logger.Warn("token decimals unavailable, using fallback",
			"token", token.Hex(),
			"decimals", dec,
		)
	}
	r.decimals.Add(token, dec)
	return dec, nil
}

// Symbol fetches a token's symbol.
func (r *Resolver) Symbol(ctx context.Context, token common.Address) (string, error) {
	vals, err := r.call(ctx, token, erc20ABI, "symbol")
	if err != nil {
		return "", err
	}
	if len(vals) != 1 {
		return "", fmt.Errorf("symbol: unexpected output arity %d", len(vals))
	}
	symbol, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol: unexpected output type %T", vals[0])
	}
	return symbol, nil
}

func (r *Resolver) looksUSD(symbol string) bool {
	sym := strings.ToUpper(symbol)
	if _, ok := r.usdHints[sym]; ok {
		return true
	}
	return strings.Contains(sym, "USD")
}

// BalanceOf fetches an ERC-20 balance.
func (r *Resolver) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	vals, err := r.call(ctx, token, erc20ABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output type %T", vals[0])
	}
	return bal, nil
}

// Allowance fetches an ERC-20 allowance.
func (r *Resolver) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	vals, err := r.call(ctx, token, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance: unexpected output type %T", vals[0])
	}
	return allowance, nil
}

// ResolveV3Pool resolves and reads a v3 pool for the pair at one fee tier.
// Known-missing and known-shallow pools short-circuit via the negative
// cache without touching the chain.
func (r *Resolver) ResolveV3Pool(ctx context.Context, factory, tokenA, tokenB common.Address, fee uint32) (*V3Pool, error) {
	negKey := "v3:" + strings.ToLower(factory.Hex()) + ":" + cache.PoolKey(tokenA.Hex(), tokenB.Hex(), fee)

	if entry, ok := r.negative.Lookup(negKey); ok {
		if r.metrics != nil {
			r.metrics.RecordNegativeCacheHit(ctx, outcomeName(entry.Outcome))
		}
		switch entry.Outcome {
		case cache.OutcomeMissing:
			return nil, ErrNoPoolFound
		case cache.OutcomeLowLiquidity:
			return nil, ErrInsufficientLiquidity
		}
	}

	meta, err := r.v3PoolMeta(ctx, negKey, factory, tokenA, tokenB, fee)
	if err != nil {
		return nil, err
	}

	pool := &V3Pool{
		Address: common.HexToAddress(meta.Address),
		Token0:  common.HexToAddress(meta.Token0),
		Token1:  common.HexToAddress(meta.Token1),
		Fee:     fee,
	}

	// State reads are never cached: price and depth move every block.
	slot, err := r.call(ctx, pool.Address, v3PoolABI, "slot0")
	if err != nil {
		return nil, fmt.Errorf("slot0 %s: %w", pool.Address.Hex(), err)
	}
	sqrtPrice, ok := slot[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("slot0: unexpected sqrtPriceX96 type %T", slot[0])
	}
	pool.SqrtPriceX96 = sqrtPrice

	liqVals, err := r.call(ctx, pool.Address, v3PoolABI, "liquidity")
	if err != nil {
		return nil, fmt.Errorf("liquidity %s: %w", pool.Address.Hex(), err)
	}
	liquidity, ok := liqVals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("liquidity: unexpected output type %T", liqVals[0])
	}
	pool.Liquidity = liquidity

	if sqrtPrice.Sign() == 0 {
		r.negative.Put(negKey, cache.OutcomeLowLiquidity, nil)
		return nil, fmt.Errorf("%w: %s has zero price", ErrPoolUninitialized, pool.Address.Hex())
	}
	if liquidity.Sign() == 0 {
		r.negative.Put(negKey, cache.OutcomeLowLiquidity, nil)
		return nil, fmt.Errorf("%w: %s has zero liquidity", ErrPoolUninitialized, pool.Address.Hex())
	}
	if r.minLiq != nil && r.minLiq.Sign() > 0 && liquidity.Cmp(r.minLiq) < 0 {
		r.negative.Put(negKey, cache.OutcomeLowLiquidity, nil)
		return nil, fmt.Errorf("%w: %s below floor", ErrInsufficientLiquidity, pool.Address.Hex())
	}

	return pool, nil
}

// v3PoolMeta resolves the immutable pool identity, consulting the positive
// cache before the factory.
func (r *Resolver) v3PoolMeta(ctx context.Context, key string, factory, tokenA, tokenB common.Address, fee uint32) (*poolMeta, error) {
	if meta := r.cachedMeta(ctx, key); meta != nil {
		return meta, nil
	}

	vals, err := r.call(ctx, factory, v3FactoryABI, "getPool", tokenA, tokenB, big.NewInt(int64(fee)))
	if err != nil {
		return nil, fmt.Errorf("getPool: %w", err)
	}
	poolAddr, ok := vals[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("getPool: unexpected output type %T", vals[0])
	}
	if poolAddr == (common.Address{}) {
		r.negative.Put(key, cache.OutcomeMissing, nil)
		return nil, ErrNoPoolFound
	}

	token0, token1, err := r.poolTokens(ctx, poolAddr, v3PoolABI)
	if err != nil {
		return nil, err
	}

	meta := &poolMeta{
		Address: poolAddr.Hex(),
		Token0:  token0.Hex(),
		Token1:  token1.Hex(),
	}
	r.storeMeta(ctx, key, meta)
	return meta, nil
}

// ResolveV2Pair resolves and reads a v2 pair for the token pair.
func (r *Resolver) ResolveV2Pair(ctx context.Context, factory, tokenA, tokenB common.Address) (*V2Pair, error) {
	negKey := "v2:" + strings.ToLower(factory.Hex()) + ":" + cache.PoolKey(tokenA.Hex(), tokenB.Hex(), 0)

	if entry, ok := r.negative.Lookup(negKey); ok {
		if r.metrics != nil {
			r.metrics.RecordNegativeCacheHit(ctx, outcomeName(entry.Outcome))
		}
		switch entry.Outcome {
		case cache.OutcomeMissing:
			return nil, ErrNoPoolFound
		case cache.OutcomeLowLiquidity:
			return nil, ErrInsufficientLiquidity
		}
	}

	meta := r.cachedMeta(ctx, negKey)
	if meta == nil {
		vals, err := r.call(ctx, factory, v2FactoryABI, "getPair", tokenA, tokenB)
		if err != nil {
			return nil, fmt.Errorf("getPair: %w", err)
		}
		pairAddr, ok := vals[0].(common.Address)
		if !ok {
			return nil, fmt.Errorf("getPair: unexpected output type %T", vals[0])
		}
		if pairAddr == (common.Address{}) {
			r.negative.Put(negKey, cache.OutcomeMissing, nil)
			return nil, ErrNoPoolFound
		}

		token0, token1, err := r.poolTokens(ctx, pairAddr, v2PairABI)
		if err != nil {
			return nil, err
		}
		meta = &poolMeta{
			Address: pairAddr.Hex(),
			Token0:  token0.Hex(),
			Token1:  token1.Hex(),
		}
		r.storeMeta(ctx, negKey, meta)
	}

	pair := &V2Pair{
		Address: common.HexToAddress(meta.Address),
		Token0:  common.HexToAddress(meta.Token0),
		Token1:  common.HexToAddress(meta.Token1),
	}

	vals, err := r.call(ctx, pair.Address, v2PairABI, "getReserves")
	if err != nil {
		return nil, fmt.Errorf("getReserves %s: %w", pair.Address.Hex(), err)
	}
	reserve0, ok0 := vals[0].(*big.Int)
	reserve1, ok1 := vals[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("getReserves: unexpected output types %T, %T", vals[0], vals[1])
	}
	pair.Reserve0 = reserve0
	pair.Reserve1 = reserve1

	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		r.negative.Put(negKey, cache.OutcomeLowLiquidity, nil)
		return nil, fmt.Errorf("%w: %s has empty reserves", ErrPoolUninitialized, pair.Address.Hex())
	}

	return pair, nil
}

// poolTokens reads token0 and token1 from a pool contract.
func (r *Resolver) poolTokens(ctx context.Context, pool common.Address, poolABI callABI) (common.Address, common.Address, error) {
	t0Vals, err := r.call(ctx, pool, poolABI, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token0 %s: %w", pool.Hex(), err)
	}
	t1Vals, err := r.call(ctx, pool, poolABI, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token1 %s: %w", pool.Hex(), err)
	}

	token0, ok0 := t0Vals[0].(common.Address)
	token1, ok1 := t1Vals[0].(common.Address)
	if !ok0 || !ok1 {
		return common.Address{}, common.Address{}, fmt.Errorf("token addresses: unexpected types %T, %T", t0Vals[0], t1Vals[0])
	}
	return token0, token1, nil
}

func (r *Resolver) cachedMeta(ctx context.Context, key string) *poolMeta {
	if r.poolCache == nil {
		return nil
	}

	raw, err := r.poolCache.Get(ctx, "meta:"+key)
	if err != nil {
		if r.metrics != nil && errors.Is(err, cache.ErrNotFound) {
			r.metrics.RecordCacheMiss(ctx, "pool_meta")
		}
		return nil
	}

	encoded, ok := raw.(string)
	if !ok {
		return nil
	}
	var meta poolMeta
	if err := json.Unmarshal([]byte(encoded), &meta); err != nil {
		return nil
	}
	if r.metrics != nil {
		r.metrics.RecordCacheHit(ctx, "pool_meta")
	}
	return &meta
}

func (r *Resolver) storeMeta(ctx context.Context, key string, meta *poolMeta) {
	if r.poolCache == nil {
		return
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := r.poolCache.Set(ctx, "meta:"+key, string(encoded), metaTTL); err != nil && r.logger != nil {
		r.logger.Debug("pool meta cache write failed", "key", key, "error", err)
	}
}

func outcomeName(o cache.Outcome) string {
	switch o {
	case cache.OutcomeMissing:
		return "missing"
	case cache.OutcomeLowLiquidity:
		return "low_liquidity"
	default:
		return "found"
	}
}

// callABI is the subset of abi.ABI the resolver uses.
type callABI interface {
	Pack(name string, args ...interface{}) ([]byte, error)
	Unpack(name string, data []byte) ([]interface{}, error)
}
