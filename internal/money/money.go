package money

import "math"

// MinorUnits converts a major-unit amount (e.g. 249.50 NOK) to integer minor units,
// rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Major converts minor units back to a major-unit amount.
func Major(minor int64) float64 {
	return float64(minor) / 100
}
