package esmutils

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// JoulesPerKwh is the exact number of joules in one kilowatt-hour.
const JoulesPerKwh = 3_600_000

// ErrPrecision is returned when a kWh value does not map onto a whole number of joules.
var ErrPrecision = errors.New("kwh value is not representable in whole joules")

// maxKwhDigits bounds the integer digits of an accepted kWh value; int64
// joules end well below 10^19 kWh.
const maxKwhDigits = 19

var (
	joulesPerKwh = decimal.NewFromInt(JoulesPerKwh)
	maxJoules    = decimal.NewFromInt(math.MaxInt64)
	minJoules    = decimal.NewFromInt(math.MinInt64)
)

// KwhToJoules converts exactly. No rounding is applied: inputs finer than one joule,
// or outside the int64 range, are rejected with ErrPrecision.
func KwhToJoules(kwh decimal.Decimal) (int64, error) {
	if kwh.IsZero() {
		return 0, nil
	}
	// Reject extreme exponents before any rescaling, whose cost grows with
	// the exponent.
	exp, digits := int64(kwh.Exponent()), int64(kwh.NumDigits())
	if exp > 0 && digits+exp > maxKwhDigits {
		return 0, ErrPrecision
	}
	// A non-zero coefficient below 10^digits carries fewer than 1.5*digits
	// factors of five, so it cannot cancel a deeper fraction of 10^-5 kWh.
	if exp < 0 && -exp > 2*digits+6 {
		return 0, ErrPrecision
	}

	j := kwh.Mul(joulesPerKwh)
	if !j.Equal(j.Truncate(0)) {
		return 0, ErrPrecision
	}
	if j.GreaterThan(maxJoules) || j.LessThan(minJoules) {
		return 0, ErrPrecision
	}
	return j.IntPart(), nil
}

// JoulesToKwh is exact for Wh-resolution values (multiples of 3600 J).
// Anything finer is rounded to decimal.DivisionPrecision places.
func JoulesToKwh(j int64) decimal.Decimal {
	return decimal.NewFromInt(j).Div(joulesPerKwh)
}

