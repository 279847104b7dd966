package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// FormatPercent renders a percent change with exactly two decimals ("-3.10").
// Rounding is applied to the exact binary value, so 2.675 renders "2.67";
// small negatives keep their sign ("-0.00").
func FormatPercent(v float64) string {
	formatted := decimal.NewFromFloatWithExponent(v, -2).StringFixed(2)
	if math.Signbit(v) && formatted == "0.00" {
		return "-0.00"
	}
	return formatted
}
