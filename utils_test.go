package gmxsdk

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestScaleToUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{"whole token 18 decimals", "1", 18, "1000000000000000000", false},
		{"fractional 8 decimals", "0.005", 8, "500000", false},
		{"truncates dust", "0.000000001", 8, "0", false},
		{"zero", "0", 6, "0", false},
		{"usd scale", "1000", 30, "1000000000000000000000000000000000", false},
		{"negative rejected", "-1", 18, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScaleToUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ScaleToUnits() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.String() != tt.want {
				t.Errorf("ScaleToUnits() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScaleToUnitsRejectsBadDecimals(t *testing.T) {
	if _, err := ScaleToUnits(decimal.NewFromInt(1), -1); err == nil {
		t.Error("ScaleToUnits() accepted negative decimals")
	}
	if _, err := ScaleToUnits(decimal.NewFromInt(1), 31); err == nil {
		t.Error("ScaleToUnits() accepted decimals above the USD scale")
	}
}

func TestDescaleFromUnits(t *testing.T) {
	units := new(big.Int)
	units.SetString("500000", 10)

	got := DescaleFromUnits(units, 8)
	if !got.Equal(decimal.RequireFromString("0.005")) {
		t.Errorf("DescaleFromUnits() = %s, want 0.005", got)
	}
}

func TestScaleRoundTrip(t *testing.T) {
	amounts := []string{"1", "0.5", "123.456", "0.00000001"}
	for _, a := range amounts {
		amount := decimal.RequireFromString(a)
		units, err := ScaleToUnits(amount, 8)
		if err != nil {
			t.Fatalf("ScaleToUnits(%s) error = %v", a, err)
		}
		if back := DescaleFromUnits(units, 8); !back.Equal(amount) {
			t.Errorf("round trip of %s = %s", a, back)
		}
	}
}

func TestNormalizeAddr(t *testing.T) {
	lower := "0x2f2a2543b76a4166549f7aab2e75bef0aefc5b0f"
	upper := "0x2F2A2543B76A4166549F7AAB2E75BEF0AEFC5B0F"
	if normalizeAddr(lower) != normalizeAddr(upper) {
		t.Errorf("normalizeAddr() differs across case: %s vs %s",
			normalizeAddr(lower), normalizeAddr(upper))
	}
}
