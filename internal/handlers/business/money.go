package business

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ExpectedReturn returns amount*(1+roi/100) rounded to the nearest whole unit
func ExpectedReturn(amount int64, roiPercentage float64) int64 {
	principal := decimal.NewFromInt(amount)
	profit := principal.Mul(decimal.NewFromFloat(roiPercentage)).Div(hundred)
	return principal.Add(profit).Round(0).IntPart()
}

// PercentOf returns pct% of amount rounded to the nearest whole unit
func PercentOf(amount int64, pct int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(pct)).
		Div(hundred).
		Round(0).
		IntPart()
}
