package units

import (
	"math/big"
	"testing"
)

func TestFormatUnitsTrim(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
		maxFrac  int
		want     string
	}{
		{"0", 10, 10, "0"},
		{"15000000000", 10, 10, "1.5"},
		{"10000000000", 10, 10, "1"},
		{"1", 12, 12, "0.000000000001"},
		{"123456789", 3, 2, "123456.78"},
		{"-2500", 3, 3, "-2.5"},
		{"-1", 3, 2, "0"},
	}
	for _, tc := range cases {
		amount, ok := new(big.Int).SetString(tc.amount, 10)
		if !ok {
			t.Fatalf("bad amount %q", tc.amount)
		}
		if got := FormatUnitsTrim(amount, tc.decimals, tc.maxFrac); got != tc.want {
			t.Fatalf("FormatUnitsTrim(%s,%d,%d)=%q want %q", tc.amount, tc.decimals, tc.maxFrac, got, tc.want)
		}
	}
}

func TestFormatBalanceAndEther(t *testing.T) {
	if got := FormatBalance(big.NewInt(15_000_000_000), 10, "DOT"); got != "1.5 DOT" {
		t.Fatalf("unexpected balance: %q", got)
	}
	if got := FormatBalance(nil, 12, "KSM"); got != "0 KSM" {
		t.Fatalf("unexpected nil balance: %q", got)
	}
	wei, _ := new(big.Int).SetString("21000000000000", 10)
	if got := FormatEther(wei); got != "0.000021 ETH" {
		t.Fatalf("unexpected ether: %q", got)
	}
}
