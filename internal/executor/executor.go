// Package executor drives a guarded trade through balance and allowance
// checks, submission, and confirmation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/gateway"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/resilience"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/quote"
)

var (
	// ErrInsufficientBalance is terminal for the trade; retrying cannot help.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrAllowanceFailed indicates the approval step exhausted its retries.
	ErrAllowanceFailed = errors.New("allowance approval failed")

	// ErrExecutionReverted indicates the swap reverted on chain.
	ErrExecutionReverted = errors.New("swap execution reverted")

	// ErrUnconfirmed indicates a submitted transaction neither confirmed
	// nor reverted within the confirmation window. The trade may still
	// land; callers must reconcile out-of-band, never assume success.
	ErrUnconfirmed = errors.New("transaction unconfirmed within timeout")
)

// Outcome is the terminal state of one trade.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSuccess
	OutcomeUnconfirmed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnconfirmed:
		return "unconfirmed"
	default:
		return "failed"
	}
}

// Result records how a trade ended.
type Result struct {
	Outcome     Outcome
	TxHash      common.Hash
	Attempts    int
	SlippageBps int64
	GasUsed     uint64
	Reason      string
}

// ChainBackend is the write-side chain surface the executor needs.
type ChainBackend interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// TokenReader reads ERC-20 balances and allowances.
type TokenReader interface {
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// GasPricer supplies the gas price for transaction building. Each retry
// re-reads it so rebuilt transactions carry a current price.
type GasPricer interface {
	Price(ctx context.Context) (*big.Int, error)
}

// Config holds executor configuration.
type Config struct {
	Chain  ChainBackend
	Tokens TokenReader
	Gas    GasPricer
	Signer Signer

	SlippageBps    int64 // starting tolerance
	MaxSlippageBps int64 // escalation ceiling
	MaxAttempts    int
	ConfirmTimeout time.Duration
	PollInterval   time.Duration

	// ApprovalRetry governs the approval step only; the swap has its own
	// attempt budget.
	ApprovalRetry *resilience.Policy

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Executor submits guarded trades and tracks them to a terminal outcome.
type Executor struct {
	chain  ChainBackend
	tokens TokenReader
	gas    GasPricer
	signer Signer

	slippageBps    int64
	maxSlippageBps int64
	maxAttempts    int
	confirmTimeout time.Duration
	pollInterval   time.Duration
	approvalRetry  resilience.Policy

	now func() time.Time

	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates an executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain backend is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token reader is required")
	}
	if cfg.Gas == nil {
		return nil, fmt.Errorf("gas pricer is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	if cfg.SlippageBps <= 0 {
		cfg.SlippageBps = 30
	}
	if cfg.MaxSlippageBps < cfg.SlippageBps {
		cfg.MaxSlippageBps = cfg.SlippageBps
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 90 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}

	approvalRetry := resilience.DefaultPolicy()
	if cfg.ApprovalRetry != nil {
		approvalRetry = *cfg.ApprovalRetry
	}
	if approvalRetry.Retryable == nil {
		// Only transient failures are worth resubmitting; a reverted or
		// unconfirmed approval surfaces as ErrAllowanceFailed.
		approvalRetry.Retryable = gateway.IsRetryable
	}

	return &Executor{
		chain:          cfg.Chain,
		tokens:         cfg.Tokens,
		gas:            cfg.Gas,
		signer:         cfg.Signer,
		slippageBps:    cfg.SlippageBps,
		maxSlippageBps: cfg.MaxSlippageBps,
		maxAttempts:    cfg.MaxAttempts,
		confirmTimeout: cfg.ConfirmTimeout,
		pollInterval:   cfg.PollInterval,
		approvalRetry:  approvalRetry,
		now:            time.Now,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}, nil
}

// Execute runs the trade to a terminal outcome: balance check, allowance
// check with approval if needed, then submit and confirm with slippage
// escalation on revert. A non-nil Result is returned even on error.
func (e *Executor) Execute(ctx context.Context, pair string, q *quote.Quote) (*Result, error) {
	owner := e.signer.Address()

	balance, err := e.tokens.BalanceOf(ctx, q.TokenIn, owner)
	if err != nil {
		return &Result{Reason: "balance_check_error"}, fmt.Errorf("balance check: %w", err)
	}
	if balance.Cmp(q.AmountIn) < 0 {
		return &Result{Reason: "insufficient_balance"},
			fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, q.AmountIn)
	}

	allowance, err := e.tokens.Allowance(ctx, q.TokenIn, owner, q.RouterAddress)
	if err != nil {
		return &Result{Reason: "allowance_check_error"}, fmt.Errorf("allowance check: %w", err)
	}
	if allowance.Cmp(q.AmountIn) < 0 {
		if err := e.approve(ctx, q.TokenIn, q.RouterAddress, owner); err != nil {
			return &Result{Reason: "allowance_failed"}, fmt.Errorf("%w: %v", ErrAllowanceFailed, err)
		}
	}

	return e.submitWithEscalation(ctx, pair, q, owner)
}

// approve grants the router an unlimited allowance and waits for the
// approval to confirm, retrying transient failures under its own budget.
func (e *Executor) approve(ctx context.Context, token, spender, owner common.Address) error {
	if e.logger != nil {
		e.logger.Info("submitting approval", "token", token.Hex(), "spender", spender.Hex())
	}

	err := e.approvalRetry.Do(ctx, func(ctx context.Context) error {
		data, err := approveCalldata(spender)
		if err != nil {
			return err
		}

		tx, err := e.buildAndSend(ctx, owner, token, data, 80_000)
		if err != nil {
			return err
		}

		receipt, err := e.waitReceipt(ctx, tx.Hash())
		if err != nil {
			return err
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return fmt.Errorf("approval reverted in tx %s", tx.Hash().Hex())
		}
		return nil
	})
	if err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordApproval(ctx, token.Hex())
	}
	return nil
}

// submitWithEscalation runs the swap attempt loop. Reverts widen the
// minimum-output bound up to the ceiling; an unconfirmed submission stops
// the loop immediately so the same trade is never submitted twice.
func (e *Executor) submitWithEscalation(ctx context.Context, pair string, q *quote.Quote, owner common.Address) (*Result, error) {
	slippage := e.slippageBps
	var lastErr error
	var lastHash common.Hash

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		minOut := applySlippage(q.AmountOut, slippage)

		data, err := swapCalldata(q, owner, minOut, e.now())
		if err != nil {
			return &Result{Attempts: attempt, SlippageBps: slippage, Reason: "build_error"}, err
		}

		gasUnits := q.GasUnits
		if gasUnits == 0 {
			gasUnits = 250_000
		}

		tx, err := e.buildAndSend(ctx, owner, q.RouterAddress, data, gasUnits)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			if gateway.Classify(err) == gateway.ClassReverted {
				lastErr = fmt.Errorf("%w: %v", ErrExecutionReverted, err)
				slippage = e.escalate(ctx, pair, slippage)
			}
			continue
		}
		lastHash = tx.Hash()

		if e.logger != nil {
			e.logger.Info("swap submitted",
				"pair", pair,
				"venue", q.Venue,
				"tx", lastHash.Hex(),
				"attempt", attempt,
				"slippage_bps", slippage,
				"min_out", minOut.String(),
			)
		}

		receipt, err := e.waitReceipt(ctx, lastHash)
		if err != nil {
			// The transaction is in flight with an unknown fate.
			// Resubmitting here risks a double trade.
			return &Result{
				Outcome:     OutcomeUnconfirmed,
				TxHash:      lastHash,
				Attempts:    attempt,
				SlippageBps: slippage,
				Reason:      "unconfirmed",
			}, fmt.Errorf("%w: tx %s", ErrUnconfirmed, lastHash.Hex())
		}

		if receipt.Status == types.ReceiptStatusSuccessful {
			return &Result{
				Outcome:     OutcomeSuccess,
				TxHash:      lastHash,
				Attempts:    attempt,
				SlippageBps: slippage,
				GasUsed:     receipt.GasUsed,
				Reason:      "success",
			}, nil
		}

		lastErr = fmt.Errorf("%w: tx %s", ErrExecutionReverted, lastHash.Hex())
		slippage = e.escalate(ctx, pair, slippage)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: attempts exhausted", ErrExecutionReverted)
	}
	return &Result{
		TxHash:      lastHash,
		Attempts:    e.maxAttempts,
		SlippageBps: slippage,
		Reason:      "execution_reverted",
	}, lastErr
}

// buildAndSend assembles, signs, and submits one transaction with a fresh
// nonce and gas price.
func (e *Executor) buildAndSend(ctx context.Context, owner, to common.Address, data []byte, gasUnits uint64) (*types.Transaction, error) {
	gasPrice, err := e.gas.Price(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	nonce, err := e.chain.PendingNonceAt(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasUnits,
		To:       &to,
		Data:     data,
	})

	signed, err := e.signer.SignTx(tx)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := e.chain.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}
	return signed, nil
}

// waitReceipt polls for the receipt until the confirmation window closes.
func (e *Executor) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	deadline := e.now().Add(e.confirmTimeout)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.chain.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && e.logger != nil {
			e.logger.Debug("receipt poll failed", "tx", hash.Hex(), "error", err)
		}

		if e.now().After(deadline) {
			return nil, fmt.Errorf("%w: tx %s", ErrUnconfirmed, hash.Hex())
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: tx %s: %v", ErrUnconfirmed, hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (e *Executor) escalate(ctx context.Context, pair string, current int64) int64 {
	next := current * 2
	if next > e.maxSlippageBps {
		next = e.maxSlippageBps
	}
	if next != current && e.metrics != nil {
		e.metrics.RecordSlippageEscalation(ctx, pair, next)
	}
	if next != current && e.logger != nil {
		e.logger.Warn("escalating slippage tolerance", "pair", pair, "from_bps", current, "to_bps", next)
	}
	return next
}

// applySlippage returns amountOut reduced by the tolerance in basis points.
func applySlippage(amountOut *big.Int, bps int64) *big.Int {
	minOut := new(big.Int).Mul(amountOut, big.NewInt(10_000-bps))
	return minOut.Quo(minOut, big.NewInt(10_000))
}
