package engine

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/executor"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/guard"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/money"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/notification"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/quote"
)

var (
	sellToken = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	buyToken  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

type stubSizer struct{ amount *big.Int }

func (s stubSizer) FromUSD(_ context.Context, _ common.Address, _ money.USD) (*big.Int, error) {
	return s.amount, nil
}

type stubQuoter struct {
	q   *quote.Quote
	err error
}

func (s stubQuoter) Best(_ context.Context, _, _ common.Address, amountIn *big.Int) (*quote.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	q := *s.q
	q.AmountIn = amountIn
	return &q, nil
}

type stubGuard struct {
	verdict guard.Verdict
	err     error
}

func (s stubGuard) Evaluate(_ context.Context, _ *guard.Plan) (guard.Verdict, error) {
	return s.verdict, s.err
}

type stubTrader struct {
	mu    sync.Mutex
	calls int
	res   *executor.Result
	err   error
}

func (s *stubTrader) Execute(_ context.Context, _ string, _ *quote.Quote) (*executor.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.res, s.err
}

func (s *stubTrader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*notification.TradeEvent
}

func (r *recordingPublisher) PublishTrade(_ context.Context, ev *notification.TradeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func goodQuote() *quote.Quote {
	return &quote.Quote{
		Venue:     "uniswap-v3",
		Kind:      "v3",
		TokenIn:   sellToken,
		TokenOut:  buyToken,
		AmountOut: big.NewInt(1_010_000),
		GasUnits:  180_000,
	}
}

func okVerdict() guard.Verdict {
	return guard.Verdict{
		OK:       true,
		GrossUSD: money.NewUSD(1.50),
		GasUSD:   money.NewUSD(0.30),
		NetUSD:   money.NewUSD(1.20),
		Reason:   "profitable",
	}
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Pairs == nil {
		cfg.Pairs = []Pair{{Name: "USDC-DAI", SellToken: sellToken, BuyToken: buyToken}}
	}
	if cfg.NotionalUSD.IsZero() {
		cfg.NotionalUSD = money.NewUSD(100)
	}
	if cfg.Sizer == nil {
		cfg.Sizer = stubSizer{amount: big.NewInt(1_000_000)}
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestTickExecutesProfitableTrade(t *testing.T) {
	trader := &stubTrader{res: &executor.Result{
		Outcome:  executor.OutcomeSuccess,
		TxHash:   common.HexToHash("0xbeef"),
		Attempts: 1,
		Reason:   "success",
	}}
	pub := &recordingPublisher{}

	e := newEngine(t, Config{
		Quoter:    stubQuoter{q: goodQuote()},
		Guard:     stubGuard{verdict: okVerdict()},
		Trader:    trader,
		Publisher: pub,
	})

	e.tick(context.Background())

	if trader.callCount() != 1 {
		t.Fatalf("trader called %d times, want 1", trader.callCount())
	}
	stats := e.Stats()
	if stats.Succeeded != 1 || stats.Executed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.NetProfitUSD != money.NewUSD(1.20) {
		t.Errorf("net profit = %v", stats.NetProfitUSD)
	}
	if pub.count() != 1 {
		t.Errorf("published %d events, want 1", pub.count())
	}
}

func TestTickDryRunSkipsExecution(t *testing.T) {
	trader := &stubTrader{res: &executor.Result{Outcome: executor.OutcomeSuccess}}
	pub := &recordingPublisher{}

	e := newEngine(t, Config{
		Quoter:    stubQuoter{q: goodQuote()},
		Guard:     stubGuard{verdict: okVerdict()},
		Trader:    trader,
		Publisher: pub,
		DryRun:    true,
	})

	e.tick(context.Background())

	if trader.callCount() != 0 {
		t.Errorf("trader called in dry run")
	}
	if pub.count() != 1 {
		t.Errorf("published %d events, want 1 dry-run event", pub.count())
	}
	pub.mu.Lock()
	outcome := pub.events[0].Outcome
	pub.mu.Unlock()
	if outcome != "dry_run" {
		t.Errorf("event outcome = %q", outcome)
	}
}

func TestTickNoQuoteIsNotAnError(t *testing.T) {
	trader := &stubTrader{}

	e := newEngine(t, Config{
		Quoter: stubQuoter{err: quote.ErrNoQuote},
		Guard:  stubGuard{},
		Trader: trader,
	})

	e.tick(context.Background())

	stats := e.Stats()
	if stats.Ticks != 1 || stats.Quotes != 0 || stats.Executed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTickGuardRejectionSkipsExecution(t *testing.T) {
	trader := &stubTrader{}

	e := newEngine(t, Config{
		Quoter: stubQuoter{q: goodQuote()},
		Guard:  stubGuard{verdict: guard.Verdict{Reason: "below_min_profit"}},
		Trader: trader,
	})

	e.tick(context.Background())

	if trader.callCount() != 0 {
		t.Errorf("trader called despite guard rejection")
	}
	if e.Stats().GuardRejects != 1 {
		t.Errorf("stats = %+v", e.Stats())
	}
}

func TestTickCountsUnconfirmed(t *testing.T) {
	trader := &stubTrader{
		res: &executor.Result{Outcome: executor.OutcomeUnconfirmed, Reason: "unconfirmed"},
		err: executor.ErrUnconfirmed,
	}

	e := newEngine(t, Config{
		Quoter: stubQuoter{q: goodQuote()},
		Guard:  stubGuard{verdict: okVerdict()},
		Trader: trader,
	})

	e.tick(context.Background())

	stats := e.Stats()
	if stats.Unconfirmed != 1 || stats.Succeeded != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.NetProfitUSD != money.Zero() {
		t.Errorf("unconfirmed trade credited profit: %v", stats.NetProfitUSD)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := newEngine(t, Config{
		Quoter:       stubQuoter{err: quote.ErrNoQuote},
		Guard:        stubGuard{},
		DryRun:       true,
		TickInterval: time.Millisecond,
		TickBudget:   10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if e.Stats().Ticks == 0 {
		t.Error("no ticks recorded before cancel")
	}
}

func TestRoundRobinAcrossPairs(t *testing.T) {
	e := newEngine(t, Config{
		Pairs: []Pair{
			{Name: "A-B", SellToken: sellToken, BuyToken: buyToken},
			{Name: "C-D", SellToken: buyToken, BuyToken: sellToken},
		},
		Quoter: stubQuoter{err: quote.ErrNoQuote},
		Guard:  stubGuard{},
		DryRun: true,
	})

	for i := 0; i < 4; i++ {
		e.tick(context.Background())
	}
	if e.next != 4 {
		t.Errorf("advanced %d pairs, want 4", e.next)
	}
	if e.Stats().Ticks != 4 {
		t.Errorf("stats = %+v", e.Stats())
	}
}
