package amm

import (
	"errors"
	"math/big"
	"testing"
)

func exp10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func TestConstantProductOutKnownVector(t *testing.T) {
	// 1 in against 1000/1000 reserves at 0.30% fee.
	amountIn := exp10(18)
	reserve := new(big.Int).Mul(big.NewInt(1000), exp10(18))

	out, err := ConstantProductOut(amountIn, reserve, reserve, 30)
	if err != nil {
		t.Fatalf("ConstantProductOut: %v", err)
	}

	want, _ := new(big.Int).SetString("996006981039903216", 10)
	if out.Cmp(want) != 0 {
		t.Errorf("out = %s, want %s", out, want)
	}
}

func TestConstantProductOutZeroInput(t *testing.T) {
	reserve := new(big.Int).Mul(big.NewInt(1000), exp10(18))

	out, err := ConstantProductOut(big.NewInt(0), reserve, reserve, 30)
	if err != nil {
		t.Fatalf("zero input: %v", err)
	}
	if out.Sign() != 0 {
		t.Errorf("out = %s, want 0", out)
	}
}

func TestConstantProductOutMonotonic(t *testing.T) {
	reserve := new(big.Int).Mul(big.NewInt(1_000_000), exp10(18))

	prev := big.NewInt(0)
	amount := exp10(15)
	for i := 0; i < 20; i++ {
		out, err := ConstantProductOut(amount, reserve, reserve, 30)
		if err != nil {
			t.Fatalf("amount %s: %v", amount, err)
		}
		if out.Cmp(prev) <= 0 {
			t.Fatalf("output not strictly increasing: %s -> %s at amountIn=%s", prev, out, amount)
		}
		prev = out
		amount = new(big.Int).Mul(amount, big.NewInt(2))
	}
}

func TestConstantProductOutDegenerate(t *testing.T) {
	reserve := new(big.Int).Mul(big.NewInt(1000), exp10(18))
	one := exp10(18)

	if _, err := ConstantProductOut(one, big.NewInt(0), reserve, 30); !errors.Is(err, ErrZeroReserves) {
		t.Errorf("zero reserveIn: got %v, want ErrZeroReserves", err)
	}
	if _, err := ConstantProductOut(one, reserve, big.NewInt(0), 30); !errors.Is(err, ErrZeroReserves) {
		t.Errorf("zero reserveOut: got %v, want ErrZeroReserves", err)
	}
	if _, err := ConstantProductOut(big.NewInt(-1), reserve, reserve, 30); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := ConstantProductOut(one, reserve, reserve, FeeDenominatorBps); !errors.Is(err, ErrInvalidFee) {
		t.Errorf("fee at denominator: got %v, want ErrInvalidFee", err)
	}

	// A positive input that rounds to zero output must fail, not quote zero.
	tinyReserveOut := big.NewInt(1)
	hugeReserveIn := new(big.Int).Mul(big.NewInt(1_000_000), exp10(18))
	if _, err := ConstantProductOut(big.NewInt(10), hugeReserveIn, tinyReserveOut, 30); !errors.Is(err, ErrZeroOutput) {
		t.Errorf("dust output: got %v, want ErrZeroOutput", err)
	}
}
