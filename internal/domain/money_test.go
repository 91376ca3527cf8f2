package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatGHS(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"37.5", "GHS 37.50"},
		{"0", "GHS 0.00"},
		{"12.505", "GHS 12.51"},
		{"1250", "GHS 1250.00"},
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.in)
		if got := FormatGHS(RoundGHS(amount)); got != tc.want {
			t.Fatalf("FormatGHS(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSumSplits(t *testing.T) {
	splits := []SplitPart{
		{Method: PaymentCash, Amount: decimal.RequireFromString("20.00")},
		{Method: PaymentMobileMoney, Amount: decimal.RequireFromString("17.49")},
	}
	if got := SumSplits(splits); !got.Equal(decimal.RequireFromString("37.49")) {
		t.Fatalf("SumSplits = %s", got)
	}
}
