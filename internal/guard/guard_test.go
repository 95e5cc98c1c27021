package guard

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/money"
)

var (
	usdcAddr = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	daiAddr  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	wethAddr = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

type fixedDecimals map[common.Address]int

func (f fixedDecimals) Decimals(_ context.Context, token common.Address) (int, error) {
	if dec, ok := f[token]; ok {
		return dec, nil
	}
	return 18, nil
}

type fixedPricer map[common.Address]float64

func (f fixedPricer) USDPrice(_ context.Context, token common.Address) (float64, error) {
	if price, ok := f[token]; ok {
		return price, nil
	}
	return 0, errors.New("no reference price")
}

type fixedGasPrice struct {
	wei   *big.Int
	err   error
	calls int
}

func (f *fixedGasPrice) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.wei), nil
}

func testDecimals() fixedDecimals {
	return fixedDecimals{usdcAddr: 6, daiAddr: 18, wethAddr: 18}
}

// newTestGuard builds a guard with $1.00 min profit and a gas setup that
// prices one 100k gas swap at $0.30 (30 gwei, ETH at $100).
func newTestGuard(t *testing.T) *Guard {
	t.Helper()

	conv := NewConverter([]common.Address{usdcAddr, daiAddr}, testDecimals(), fixedPricer{wethAddr: 100})
	oracle := NewGasOracle(&fixedGasPrice{wei: big.NewInt(30_000_000_000)}, time.Minute, 500, nil)

	g, err := New(Config{
		Converter: conv,
		GasOracle: oracle,
		NativeUSD: fixedPricer{wethAddr: 100},
		GasToken:  wethAddr,
		MinProfit: money.NewUSD(1.00),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func usdc(dollars float64) *big.Int {
	return big.NewInt(int64(dollars * 1e6))
}

func TestGuardRejectsBelowMinProfit(t *testing.T) {
	g := newTestGuard(t)

	// Sell $100.00, receive $100.80, gas $0.30: net $0.50 under a $1 floor.
	verdict, err := g.Evaluate(context.Background(), &Plan{
		Pair:       "USDC-DAI",
		SellToken:  usdcAddr,
		BuyToken:   daiAddr,
		SellAmount: usdc(100.00),
		BuyAmount:  big.NewInt(0).Mul(big.NewInt(10080), pow10(16)), // 100.80 DAI
		GasUnits:   100_000,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if verdict.OK {
		t.Error("verdict OK, want rejection")
	}
	if verdict.NetUSD != money.NewUSD(0.50) {
		t.Errorf("net = %v, want $0.50", verdict.NetUSD)
	}
	if verdict.Reason != "below_min_profit" {
		t.Errorf("reason = %q", verdict.Reason)
	}
}

func TestGuardAcceptsAboveMinProfit(t *testing.T) {
	g := newTestGuard(t)

	// Sell $100.00, receive $101.50, gas $0.30: net $1.20 over a $1 floor.
	verdict, err := g.Evaluate(context.Background(), &Plan{
		Pair:       "USDC-DAI",
		SellToken:  usdcAddr,
		BuyToken:   daiAddr,
		SellAmount: usdc(100.00),
		BuyAmount:  big.NewInt(0).Mul(big.NewInt(10150), pow10(16)), // 101.50 DAI
		GasUnits:   100_000,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if !verdict.OK {
		t.Errorf("verdict rejected: %+v", verdict)
	}
	if verdict.NetUSD != money.NewUSD(1.20) {
		t.Errorf("net = %v, want $1.20", verdict.NetUSD)
	}
	if verdict.GasUSD != money.NewUSD(0.30) {
		t.Errorf("gas = %v, want $0.30", verdict.GasUSD)
	}
}

func TestGuardUnpriceableIsAnError(t *testing.T) {
	g := newTestGuard(t)

	unknown := common.HexToAddress("0x1234")
	_, err := g.Evaluate(context.Background(), &Plan{
		Pair:       "XXX-USDC",
		SellToken:  unknown, // not stable, no reference price
		BuyToken:   usdcAddr,
		SellAmount: big.NewInt(1e18),
		BuyAmount:  usdc(100),
		GasUnits:   100_000,
	})
	if !errors.Is(err, ErrUnpriceable) {
		t.Errorf("err = %v, want ErrUnpriceable", err)
	}
}

func TestConverterStableToUSD(t *testing.T) {
	conv := NewConverter([]common.Address{usdcAddr}, testDecimals(), nil)

	got, err := conv.ToUSD(context.Background(), usdcAddr, usdc(1234.56))
	if err != nil {
		t.Fatalf("ToUSD: %v", err)
	}
	if got != money.NewUSD(1234.56) {
		t.Errorf("usd = %v, want $1234.56", got)
	}
}

func TestConverterRefPrice(t *testing.T) {
	conv := NewConverter(nil, testDecimals(), fixedPricer{wethAddr: 2500})

	got, err := conv.ToUSD(context.Background(), wethAddr, big.NewInt(2e18))
	if err != nil {
		t.Fatalf("ToUSD: %v", err)
	}
	if got != money.NewUSD(5000) {
		t.Errorf("usd = %v, want $5000.00", got)
	}
}

func TestConverterFromUSDSizing(t *testing.T) {
	conv := NewConverter([]common.Address{usdcAddr}, testDecimals(), fixedPricer{wethAddr: 2000})

	stable, err := conv.FromUSD(context.Background(), usdcAddr, money.NewUSD(1000))
	if err != nil {
		t.Fatalf("FromUSD stable: %v", err)
	}
	if stable.Cmp(usdc(1000)) != 0 {
		t.Errorf("stable sizing = %s, want 1000e6", stable)
	}

	eth, err := conv.FromUSD(context.Background(), wethAddr, money.NewUSD(1000))
	if err != nil {
		t.Fatalf("FromUSD weth: %v", err)
	}
	// $1000 at $2000/ETH = 0.5 ETH
	want := big.NewInt(5e17)
	diff := new(big.Int).Abs(new(big.Int).Sub(eth, want))
	if diff.Cmp(big.NewInt(1e9)) > 0 {
		t.Errorf("weth sizing = %s, want ~%s", eth, want)
	}
}

func TestGasOracleCachesAndCaps(t *testing.T) {
	source := &fixedGasPrice{wei: big.NewInt(900_000_000_000)} // 900 gwei
	oracle := NewGasOracle(source, time.Minute, 500, nil)

	price, err := oracle.Price(context.Background())
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if price.Cmp(big.NewInt(500_000_000_000)) != 0 {
		t.Errorf("price = %s, want capped at 500 gwei", price)
	}

	for i := 0; i < 5; i++ {
		if _, err := oracle.Price(context.Background()); err != nil {
			t.Fatalf("Price %d: %v", i, err)
		}
	}
	if source.calls != 1 {
		t.Errorf("source queried %d times within TTL, want 1", source.calls)
	}
}

func TestGasOracleServesStaleOnFailure(t *testing.T) {
	source := &fixedGasPrice{wei: big.NewInt(20_000_000_000)}
	oracle := NewGasOracle(source, 10*time.Second, 500, nil)

	base := time.Now()
	now := base
	oracle.SetClock(func() time.Time { return now })

	if _, err := oracle.Price(context.Background()); err != nil {
		t.Fatalf("Price: %v", err)
	}

	source.err = errors.New("provider down")
	now = base.Add(time.Minute)

	price, err := oracle.Price(context.Background())
	if err != nil {
		t.Fatalf("Price with stale cache: %v", err)
	}
	if price.Cmp(big.NewInt(20_000_000_000)) != 0 {
		t.Errorf("stale price = %s", price)
	}
}
