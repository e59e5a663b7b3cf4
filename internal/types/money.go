// README: Common money helpers used across modules. Amounts are decimal floats rounded half-up to cents at every component boundary.
package types

import "math"

const DefaultCurrency = "EUR"

// RoundMoney rounds half-up (away from zero) to 2 decimals. The small epsilon absorbs
// binary representation error so that 1.005 rounds to 1.01.
func RoundMoney(v float64) float64 {
	return Round(v, 2)
}

// Round rounds half-up to the given number of decimals.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(decimals))
	if v < 0 {
		return -math.Floor(-v*p+0.5+1e-9) / p
	}
	return math.Floor(v*p+0.5+1e-9) / p
}
