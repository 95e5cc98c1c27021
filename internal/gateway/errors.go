package gateway

import (
	"context"
	"errors"
	"net"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrRateLimited indicates the provider rejected the call for quota
	// reasons. Retryable after backoff, ideally on another endpoint.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrNetworkTransient indicates a connectivity failure. Retryable.
	ErrNetworkTransient = errors.New("transient network error")

	// ErrAllEndpointsFailed indicates every configured endpoint either
	// rejected or failed the call.
	ErrAllEndpointsFailed = errors.New("all endpoints failed")

	// ErrNoEndpoints indicates the gateway has no configured endpoints.
	ErrNoEndpoints = errors.New("no endpoints configured")
)

// ErrorClass is the coarse classification of an RPC failure. Callers
// branch on the class, never on error strings.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassRateLimited
	ClassNetworkTransient
	ClassReverted
	ClassCanceled
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassNetworkTransient:
		return "network_transient"
	case ClassReverted:
		return "reverted"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify maps an error from an RPC call to its class using typed
// inspection of the go-ethereum error hierarchy.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}
	if errors.Is(err, ErrRateLimited) {
		return ClassRateLimited
	}
	if errors.Is(err, ErrNetworkTransient) {
		return ClassNetworkTransient
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return ClassRateLimited
		}
		if httpErr.StatusCode >= 500 {
			return ClassNetworkTransient
		}
		return ClassUnknown
	}

	// Execution reverts surface as rpc.Error with revert data attached.
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return ClassReverted
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if code := rpcErr.ErrorCode(); code == 3 || code == -32000 {
			return ClassReverted
		}
		return ClassUnknown
	}

	// Covers timeouts plus dial and DNS failures: *net.OpError and
	// *net.DNSError both implement net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassNetworkTransient
	}

	return ClassUnknown
}

// IsRetryable reports whether the error is worth retrying on the same or
// another endpoint.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ClassRateLimited, ClassNetworkTransient:
		return true
	default:
		return false
	}
}
