package gateway

import (
	"context"
	"errors"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/resilience"
)

// fakeClient implements nodeClient with scripted responses.
type fakeClient struct {
	mu        sync.Mutex
	calls     int
	callErr   error
	callOut   []byte
	gasPrice  *big.Int
	nonce     uint64
	receipt   *types.Receipt
	recErr    error
	sendErr   error
	balance   *big.Int
	closed    bool
}

func (f *fakeClient) bump() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.bump()
	return f.callOut, f.callErr
}

func (f *fakeClient) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	f.bump()
	if f.gasPrice == nil {
		return nil, errors.New("no gas price scripted")
	}
	return f.gasPrice, nil
}

func (f *fakeClient) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	f.bump()
	return f.receipt, f.recErr
}

func (f *fakeClient) SendTransaction(_ context.Context, _ *types.Transaction) error {
	f.bump()
	return f.sendErr
}

func (f *fakeClient) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	f.bump()
	return f.nonce, nil
}

func (f *fakeClient) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	f.bump()
	return f.balance, nil
}

func (f *fakeClient) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	f.bump()
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeClient) Close() {
	f.closed = true
}

func dialerFor(clients map[string]*fakeClient) Dialer {
	return func(_ context.Context, url string) (nodeClient, error) {
		c, ok := clients[url]
		if !ok {
			return nil, errors.New("unknown url")
		}
		return c, nil
	}
}

func newTestGateway(t *testing.T, clients map[string]*fakeClient) *Gateway {
	t.Helper()

	var eps []EndpointConfig
	for url := range clients {
		eps = append(eps, EndpointConfig{URL: url, RatePerSecond: 1000, MaxConcurrency: 8})
	}

	g, err := New(context.Background(), Config{
		ChainID:   1,
		Endpoints: eps,
		Retry:     resilience.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Dialer:    dialerFor(clients),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestGatewayCallContract(t *testing.T) {
	client := &fakeClient{callOut: []byte{0x01, 0x02}}
	g := newTestGateway(t, map[string]*fakeClient{"a": client})

	out, err := g.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	if err != nil {
		t.Fatalf("CallContract: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("out = %x", out)
	}
}

func TestGatewayRotatesOnRateLimit(t *testing.T) {
	limited := &fakeClient{callErr: rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}}
	healthy := &fakeClient{callOut: []byte{0xaa}}

	clients := map[string]*fakeClient{"limited": limited, "healthy": healthy}
	g := newTestGateway(t, clients)

	// Run enough calls that rotation starts from each endpoint at least once.
	for i := 0; i < 4; i++ {
		out, err := g.CallContract(context.Background(), ethereum.CallMsg{}, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(out) != 1 || out[0] != 0xaa {
			t.Errorf("call %d: out = %x, want aa", i, out)
		}
	}

	if healthy.callCount() != 4 {
		t.Errorf("healthy endpoint served %d calls, want 4", healthy.callCount())
	}
}

func TestGatewayDoesNotRotateOnRevert(t *testing.T) {
	reverted := &fakeClient{callErr: &fakeDataError{msg: "execution reverted"}}
	g := newTestGateway(t, map[string]*fakeClient{"a": reverted})

	_, err := g.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	if err == nil {
		t.Fatal("expected revert error")
	}
	if Classify(err) != ClassReverted {
		t.Errorf("class = %v, want reverted", Classify(err))
	}
	if reverted.callCount() != 1 {
		t.Errorf("reverted endpoint called %d times, want 1", reverted.callCount())
	}
}

func TestGatewayBacksOffWhenSoleEndpointRateLimits(t *testing.T) {
	limited := &fakeClient{callErr: rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}}
	g := newTestGateway(t, map[string]*fakeClient{"limited": limited})

	_, err := g.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	if !errors.Is(err, ErrAllEndpointsFailed) {
		t.Fatalf("err = %v, want ErrAllEndpointsFailed", err)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited in chain", err)
	}
	// One rotation pass per retry attempt, so the sole endpoint is hit
	// once per attempt before the call finally fails.
	if limited.callCount() != 3 {
		t.Errorf("endpoint called %d times, want 3", limited.callCount())
	}
}

func TestGatewayAllEndpointsFailed(t *testing.T) {
	a := &fakeClient{callErr: rpc.HTTPError{StatusCode: 429}}
	b := &fakeClient{callErr: rpc.HTTPError{StatusCode: 503}}
	g := newTestGateway(t, map[string]*fakeClient{"a": a, "b": b})

	_, err := g.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	if !errors.Is(err, ErrAllEndpointsFailed) {
		t.Errorf("err = %v, want ErrAllEndpointsFailed", err)
	}
}

func TestGatewayChainIDIsStatic(t *testing.T) {
	client := &fakeClient{}
	g := newTestGateway(t, map[string]*fakeClient{"a": client})

	id := g.ChainID()
	if id.Int64() != 1 {
		t.Errorf("chain id = %d, want 1", id.Int64())
	}
	if client.callCount() != 0 {
		t.Errorf("ChainID made %d RPC calls, want 0", client.callCount())
	}

	// Mutating the returned value must not affect the gateway.
	id.SetInt64(99)
	if g.ChainID().Int64() != 1 {
		t.Error("ChainID returned shared big.Int")
	}
}

// fakeDataError mimics go-ethereum's revert error shape.
type fakeDataError struct {
	msg string
}

func (e *fakeDataError) Error() string          { return e.msg }
func (e *fakeDataError) ErrorData() interface{} { return "0x08c379a0" }

// fakeNetError mimics a timeout from the transport.
type fakeNetError struct{}

func (e *fakeNetError) Error() string   { return "i/o timeout" }
func (e *fakeNetError) Timeout() bool   { return true }
func (e *fakeNetError) Temporary() bool { return true }

var _ net.Error = (*fakeNetError)(nil)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"429", rpc.HTTPError{StatusCode: 429}, ClassRateLimited},
		{"503", rpc.HTTPError{StatusCode: 503}, ClassNetworkTransient},
		{"timeout", &fakeNetError{}, ClassNetworkTransient},
		{"revert data", &fakeDataError{msg: "execution reverted"}, ClassReverted},
		{"canceled", context.Canceled, ClassCanceled},
		{"plain", errors.New("boom"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}
