package executor

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/quote"
)

const erc20ApproveJSON = `[
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const v3RouterJSON = `[
	{"name":"exactInputSingle","type":"function","stateMutability":"payable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

const v2RouterJSON = `[
	{"name":"swapExactTokensForTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

var (
	erc20ApproveABI = mustParseABI(erc20ApproveJSON)
	v3RouterABI     = mustParseABI(v3RouterJSON)
	v2RouterABI     = mustParseABI(v2RouterJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("executor: bad ABI literal: " + err.Error())
	}
	return parsed
}

// maxAllowance is the conventional unlimited ERC-20 approval amount.
var maxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func approveCalldata(spender common.Address) ([]byte, error) {
	return erc20ApproveABI.Pack("approve", spender, maxAllowance)
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// swapDeadline gives the chain a fixed window to mine the swap.
const swapDeadline = 5 * time.Minute

// swapCalldata builds the router call for the quoted swap with the given
// minimum-output bound.
func swapCalldata(q *quote.Quote, recipient common.Address, minOut *big.Int, now time.Time) ([]byte, error) {
	deadline := big.NewInt(now.Add(swapDeadline).Unix())

	switch q.Kind {
	case "v3":
		return v3RouterABI.Pack("exactInputSingle", exactInputSingleParams{
			TokenIn:           q.TokenIn,
			TokenOut:          q.TokenOut,
			Fee:               big.NewInt(int64(q.FeeTier)),
			Recipient:         recipient,
			Deadline:          deadline,
			AmountIn:          q.AmountIn,
			AmountOutMinimum:  minOut,
			SqrtPriceLimitX96: big.NewInt(0),
		})
	case "v2":
		path := []common.Address{q.TokenIn, q.TokenOut}
		return v2RouterABI.Pack("swapExactTokensForTokens", q.AmountIn, minOut, path, recipient, deadline)
	default:
		return nil, fmt.Errorf("unknown router kind %q", q.Kind)
	}
}
