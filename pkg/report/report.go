// Package report computes energy usage over a time span from persisted
// register readings.
//
// Registers are monotonic counters, so usage per tariff is the last reading
// minus the first one in the span. Missing intermediate samples do not
// matter as long as the first and last ones bracket the interval. Counter
// resets are not handled.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

// Source yields persisted records whose timestamp is within [start, end].
type Source interface {
	ScanRange(ctx context.Context, start, end time.Time, fn func(value []byte) error) error
}

type TariffUsage struct {
	Tariff   types.Tariff
	Usage    types.Joule
	First    types.Reading
	Last     types.Reading
	Readings int
}

type Usage struct {
	Start   time.Time
	End     time.Time
	Tariffs []TariffUsage
	Total   types.Joule
}

// ByTariff returns the per-tariff usage as a mapping.
func (u *Usage) ByTariff() map[types.Tariff]types.Joule {
	m := make(map[types.Tariff]types.Joule, len(u.Tariffs))
	for _, t := range u.Tariffs {
		m[t.Tariff] = t.Usage
	}
	return m
}

// Generate reports usage for [start, end]. Tariffs are listed in canonical
// order and only when they have readings in the span; a tariff with a single
// reading has zero usage.
func Generate(ctx context.Context, src Source, start, end time.Time) (*Usage, error) {
	groups := make(map[types.Tariff][]types.Reading)

	err := src.ScanRange(ctx, start, end, func(value []byte) error {
		r, err := types.UnmarshalRecord(value)
		if err != nil {
			return fmt.Errorf("decoding record: %w", err)
		}
		groups[r.Tariff] = append(groups[r.Tariff], r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Summarize(start, end, groups), nil
}

// Summarize normalizes each group and takes the delta of its extremes.
func Summarize(start, end time.Time, groups map[types.Tariff][]types.Reading) *Usage {
	u := &Usage{Start: start, End: end}
	for _, tariff := range types.Tariffs {
		readings := groups[tariff]
		if len(readings) == 0 {
			continue
		}
		types.Normalize(readings)

		first, last := readings[0], readings[len(readings)-1]
		usage := last.Energy.Sub(first.Energy)
		u.Tariffs = append(u.Tariffs, TariffUsage{
			Tariff:   tariff,
			Usage:    usage,
			First:    first,
			Last:     last,
			Readings: len(readings),
		})
		u.Total = u.Total.Add(usage)
	}
	return u
}

// Render prints one line per tariff followed by the total.
func Render(w io.Writer, u *Usage) error {
	for _, t := range u.Tariffs {
		if _, err := fmt.Fprintf(w, "%s: %s kWh\n", t.Tariff, t.Usage.Kwh()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\ntotal: %s kWh\n", u.Total.Kwh())
	return err
}
