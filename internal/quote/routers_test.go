package quote

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/config"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/resolver"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

// fakePools serves scripted pool state per fee tier.
type fakePools struct {
	v3    map[uint32]*resolver.V3Pool
	v3Err map[uint32]error
	v2    *resolver.V2Pair
	v2Err error
}

func (f *fakePools) ResolveV3Pool(_ context.Context, _, _, _ common.Address, fee uint32) (*resolver.V3Pool, error) {
	if err, ok := f.v3Err[fee]; ok {
		return nil, err
	}
	if pool, ok := f.v3[fee]; ok {
		return pool, nil
	}
	return nil, resolver.ErrNoPoolFound
}

func (f *fakePools) ResolveV2Pair(_ context.Context, _, _, _ common.Address) (*resolver.V2Pair, error) {
	if f.v2Err != nil {
		return nil, f.v2Err
	}
	return f.v2, nil
}

func sqrtPriceForOne() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 96) // price 1.0
}

func TestV3RouterPicksBestTier(t *testing.T) {
	pools := &fakePools{
		v3: map[uint32]*resolver.V3Pool{
			500: {
				Address:      common.HexToAddress("0x01"),
				Token0:       weth,
				Token1:       usdc,
				Fee:          500,
				SqrtPriceX96: sqrtPriceForOne(),
				Liquidity:    new(big.Int).Lsh(big.NewInt(1), 120),
			},
			3000: {
				Address:      common.HexToAddress("0x02"),
				Token0:       weth,
				Token1:       usdc,
				Fee:          3000,
				SqrtPriceX96: sqrtPriceForOne(),
				Liquidity:    new(big.Int).Lsh(big.NewInt(1), 120),
			},
		},
	}

	r := NewV3Router("uni", common.Address{}, common.Address{}, []uint32{500, 3000}, 180000, pools)

	amountIn := big.NewInt(1_000_000)
	q, err := r.Quote(context.Background(), weth, usdc, amountIn)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// Same price both tiers, so the lower fee tier must win.
	if q.FeeTier != 500 {
		t.Errorf("fee tier = %d, want 500", q.FeeTier)
	}
	want := big.NewInt(999_500) // 1e6 * (1 - 0.0005)
	if q.AmountOut.Cmp(want) != 0 {
		t.Errorf("amount out = %s, want %s", q.AmountOut, want)
	}
}

func TestV3RouterSkipsMissingTier(t *testing.T) {
	pools := &fakePools{
		v3: map[uint32]*resolver.V3Pool{
			3000: {
				Address:      common.HexToAddress("0x02"),
				Token0:       weth,
				Token1:       usdc,
				Fee:          3000,
				SqrtPriceX96: sqrtPriceForOne(),
				Liquidity:    new(big.Int).Lsh(big.NewInt(1), 120),
			},
		},
		v3Err: map[uint32]error{500: resolver.ErrNoPoolFound},
	}

	r := NewV3Router("uni", common.Address{}, common.Address{}, []uint32{500, 3000}, 180000, pools)

	q, err := r.Quote(context.Background(), weth, usdc, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.FeeTier != 3000 {
		t.Errorf("fee tier = %d, want 3000", q.FeeTier)
	}
}

func TestV3RouterAllTiersMissing(t *testing.T) {
	pools := &fakePools{
		v3Err: map[uint32]error{
			500:  resolver.ErrNoPoolFound,
			3000: resolver.ErrNoPoolFound,
		},
	}

	r := NewV3Router("uni", common.Address{}, common.Address{}, []uint32{500, 3000}, 180000, pools)

	_, err := r.Quote(context.Background(), weth, usdc, big.NewInt(1))
	if !errors.Is(err, resolver.ErrNoPoolFound) {
		t.Errorf("err = %v, want ErrNoPoolFound", err)
	}
}

func TestV2RouterQuote(t *testing.T) {
	pools := &fakePools{
		v2: &resolver.V2Pair{
			Address:  common.HexToAddress("0x03"),
			Token0:   usdc,
			Token1:   weth,
			Reserve0: mustBig("1000000000000000000000"),
			Reserve1: mustBig("1000000000000000000000"),
		},
	}

	r := NewV2Router("sushi", common.Address{}, common.Address{}, 30, 120000, pools)

	// tokenIn is token1: reserves must be swapped before the formula.
	q, err := r.Quote(context.Background(), weth, usdc, mustBig("1000000000000000000"))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.AmountOut.String() != "996006981039903216" {
		t.Errorf("amount out = %s", q.AmountOut)
	}
}

func TestBuildRouters(t *testing.T) {
	pools := &fakePools{}

	routers, err := BuildRouters([]config.RouterConfig{
		{Name: "uni", Kind: "v3", Router: "0x01", Factory: "0x02", FeeTiers: []uint32{3000}},
		{Name: "sushi", Kind: "v2", Router: "0x03", Factory: "0x04", FeeBps: 30},
	}, pools)
	if err != nil {
		t.Fatalf("BuildRouters: %v", err)
	}
	if len(routers) != 2 {
		t.Fatalf("built %d routers, want 2", len(routers))
	}

	if _, err := BuildRouters([]config.RouterConfig{
		{Name: "x", Kind: "v4"},
	}, pools); err == nil {
		t.Error("unknown kind accepted")
	}

	if _, err := BuildRouters([]config.RouterConfig{
		{Name: "dup", Kind: "v2", FeeBps: 30},
		{Name: "dup", Kind: "v2", FeeBps: 30},
	}, pools); err == nil {
		t.Error("duplicate name accepted")
	}
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int literal " + s)
	}
	return v
}
