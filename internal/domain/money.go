package domain

import "github.com/shopspring/decimal"

// All amounts are Ghana cedis at two decimal places.

// FormatGHS renders an amount for display and receipts: "GHS 37.50".
func FormatGHS(amount decimal.Decimal) string {
	return "GHS " + amount.StringFixed(2)
}

// RoundGHS normalizes an amount to currency scale.
func RoundGHS(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// SumSplits totals the amounts of a split payment plan at currency scale.
func SumSplits(splits []SplitPart) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	return RoundGHS(sum)
}
