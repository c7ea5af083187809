package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// RoundHalfUp rounds to a whole number of cents, halves going up.
// Every discount and tax amount passes through here.
func RoundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// PercentOf returns pct percent of amount, rounded half up.
func PercentOf(amount int64, pct decimal.Decimal) int64 {
	return RoundHalfUp(decimal.NewFromInt(amount).Mul(pct).Div(hundred))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
