package types

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/NotCoffee418/european_smart_meter/pkg/esmutils"
	"github.com/shopspring/decimal"
)

// ErrKwhSyntax rejects anything but plain decimal literals. Exponent
// notation is not accepted.
var ErrKwhSyntax = errors.New("invalid kwh literal")

var kwhLiteral = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// Joule is a fixed-point energy quantity. Meter registers are monotonic
// counters of it.
type Joule int64

// JouleFromKwh converts exactly, failing with esmutils.ErrPrecision when the
// value is finer than one joule.
func JouleFromKwh(kwh decimal.Decimal) (Joule, error) {
	j, err := esmutils.KwhToJoules(kwh)
	if err != nil {
		return 0, err
	}
	return Joule(j), nil
}

// ParseKwh parses a decimal kWh literal such as "001234.567".
func ParseKwh(s string) (Joule, error) {
	if !kwhLiteral.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrKwhSyntax, s)
	}
	kwh, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrKwhSyntax, err)
	}
	return JouleFromKwh(kwh)
}

func (j Joule) Kwh() decimal.Decimal {
	return esmutils.JoulesToKwh(int64(j))
}

func (j Joule) Add(o Joule) Joule { return j + o }

func (j Joule) Sub(o Joule) Joule { return j - o }

// Sum accumulates all values onto zero.
func Sum(values ...Joule) Joule {
	var total Joule
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func (j Joule) String() string {
	return j.Kwh().String() + " kWh"
}
