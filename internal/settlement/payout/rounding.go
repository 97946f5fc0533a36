package payout

import "github.com/shopspring/decimal"

var fifty = decimal.NewFromInt(50)

// RoundDown50 floors an amount to the nearest lower multiple of 50. Every
// amount that becomes a ledger entry goes through it.
func RoundDown50(d decimal.Decimal) int64 {
	return d.Div(fifty).Floor().Mul(fifty).IntPart()
}

// StreakMultiplier maps consecutive streak days onto the points multiplier
func StreakMultiplier(days int) decimal.Decimal {
	switch {
	case days >= 8:
		return decimal.RequireFromString("1.30")
	case days >= 6:
		return decimal.RequireFromString("1.20")
	case days >= 4:
		return decimal.RequireFromString("1.10")
	case days >= 2:
		return decimal.RequireFromString("1.05")
	default:
		return decimal.NewFromInt(1)
	}
}
