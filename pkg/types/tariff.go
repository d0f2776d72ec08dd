package types

import (
	"errors"
	"fmt"
)

// Tariff is the billing rate bucket. The numeric value is the persisted
// discriminant and matches the meter's tariff indicator.
type Tariff uint8

const (
	Normal  Tariff = 1
	OffPeak Tariff = 2
)

// Tariffs lists every tariff in canonical output order.
var Tariffs = []Tariff{Normal, OffPeak}

var ErrUnknownTariff = errors.New("unknown tariff")

// ParseTariff maps a tariff indicator value onto a Tariff.
func ParseTariff(v uint64) (Tariff, error) {
	if v == uint64(Normal) || v == uint64(OffPeak) {
		return Tariff(v), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownTariff, v)
}

// ParseTariffName accepts the String form.
func ParseTariffName(s string) (Tariff, error) {
	for _, t := range Tariffs {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTariff, s)
}

func (t Tariff) Valid() bool {
	return t == Normal || t == OffPeak
}

func (t Tariff) String() string {
	switch t {
	case Normal:
		return "normal"
	case OffPeak:
		return "offpeak"
	default:
		return fmt.Sprintf("tariff(%d)", uint8(t))
	}
}
