package chain

import (
	"context"
	"math/big"
	"testing"
)

func TestBudgetCeilingDoublesBase(t *testing.T) {
	tests := []struct {
		class OrderClass
		base  int64
	}{
		{ClassIncrease, 4_000_000},
		{ClassDecrease, 3_500_000},
		{ClassSwap, 3_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.class.String(), func(t *testing.T) {
			backend := newFakeBackend()
			backend.uints[hashString(tt.class.GasLimitKey())] = big.NewInt(tt.base)
			gw := newTestGateway(t, backend)

			plan, err := gw.Budget(context.Background(), tt.class, big.NewInt(1))
			if err != nil {
				t.Fatalf("Budget() error = %v", err)
			}
			if plan.Base.Int64() != tt.base {
				t.Errorf("Base = %s, want %d", plan.Base, tt.base)
			}
			if plan.Ceiling != uint64(2*tt.base) {
				t.Errorf("Ceiling = %d, want %d", plan.Ceiling, 2*tt.base)
			}
			if plan.MaxPriorityFeePerGas.Sign() != 0 {
				t.Errorf("MaxPriorityFeePerGas = %s, want 0", plan.MaxPriorityFeePerGas)
			}
		})
	}
}

func TestBudgetDefaultMaxFee(t *testing.T) {
	backend := newFakeBackend()
	backend.baseFee = big.NewInt(2_000_000_000)
	backend.uints[hashString(ClassIncrease.GasLimitKey())] = big.NewInt(1_000_000)
	gw := newTestGateway(t, backend)

	plan, err := gw.Budget(context.Background(), ClassIncrease, nil)
	if err != nil {
		t.Fatalf("Budget() error = %v", err)
	}
	// 1.35x the 2 gwei base fee.
	if got, want := plan.MaxFeePerGas.Int64(), int64(2_700_000_000); got != want {
		t.Errorf("MaxFeePerGas = %d, want %d", got, want)
	}
}

func TestBudgetExplicitMaxFee(t *testing.T) {
	backend := newFakeBackend()
	backend.uints[hashString(ClassSwap.GasLimitKey())] = big.NewInt(1)
	gw := newTestGateway(t, backend)

	plan, err := gw.Budget(context.Background(), ClassSwap, big.NewInt(777))
	if err != nil {
		t.Fatalf("Budget() error = %v", err)
	}
	if plan.MaxFeePerGas.Int64() != 777 {
		t.Errorf("MaxFeePerGas = %s, want the explicit 777", plan.MaxFeePerGas)
	}
}

func TestGasLimitKeys(t *testing.T) {
	tests := []struct {
		class OrderClass
		want  string
	}{
		{ClassIncrease, "increaseOrderGasLimit"},
		{ClassDecrease, "decreaseOrderGasLimit"},
		{ClassSwap, "swapOrderGasLimit"},
	}
	for _, tt := range tests {
		if got := tt.class.GasLimitKey(); got != tt.want {
			t.Errorf("GasLimitKey(%s) = %q, want %q", tt.class, got, tt.want)
		}
	}
}

func TestHashStringDistinguishesKeys(t *testing.T) {
	a := hashString("increaseOrderGasLimit")
	b := hashString("decreaseOrderGasLimit")
	if a == b {
		t.Error("hashString() collides across distinct keys")
	}
	if a != hashString("increaseOrderGasLimit") {
		t.Error("hashString() is not deterministic")
	}
}

func TestExecutionFee(t *testing.T) {
	plan := &GasPlan{
		Base:         big.NewInt(4_000_000),
		MaxFeePerGas: big.NewInt(1_000_000_000),
	}

	// 4e6 gas at 1 gwei, padded by 1.3.
	got := ExecutionFee(plan, 1.3)
	want := big.NewInt(5_200_000_000_000_000)
	if got.Cmp(want) != 0 {
		t.Errorf("ExecutionFee() = %s, want %s", got, want)
	}
}

func TestExecutionFeeNoBuffer(t *testing.T) {
	plan := &GasPlan{
		Base:         big.NewInt(100),
		MaxFeePerGas: big.NewInt(10),
	}
	if got := ExecutionFee(plan, 1.0); got.Int64() != 1000 {
		t.Errorf("ExecutionFee() = %s, want 1000", got)
	}
}
