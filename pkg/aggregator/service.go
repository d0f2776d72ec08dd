package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/NotCoffee418/european_smart_meter/pkg/report"
)

// roundToHourStart returns the start of the hour for the given time
func roundToHourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// roundToDayStart returns the start of the day for the given time
func roundToDayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// roundToMonthStart returns the start of the month for the given time
func roundToMonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func windowStart(tf Timeframe, t time.Time) time.Time {
	switch tf {
	case Hourly:
		return roundToHourStart(t)
	case Daily:
		return roundToDayStart(t)
	default:
		return roundToMonthStart(t)
	}
}

// nextWindow returns the start of the following window. Days and months are
// stepped by calendar so DST changes keep windows aligned.
func nextWindow(tf Timeframe, start time.Time) time.Time {
	switch tf {
	case Hourly:
		return start.Add(time.Hour)
	case Daily:
		return start.AddDate(0, 0, 1)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// Breakdown splits [start, end] into windows aligned in loc and reports usage
// for each one. The first and last windows are clipped to the span. Windows
// without readings are omitted.
func Breakdown(ctx context.Context, src report.Source, start, end time.Time, tf Timeframe, loc *time.Location) ([]Bucket, error) {
	if tf < Hourly || tf > Monthly {
		return nil, fmt.Errorf("unknown timeframe %d", tf)
	}
	if loc == nil {
		loc = time.UTC
	}

	var buckets []Bucket
	for ws := windowStart(tf, start.In(loc)); !ws.After(end); ws = nextWindow(tf, ws) {
		from := ws
		if from.Before(start) {
			from = start
		}
		// getEnd: last second of the window (next window start - 1)
		to := nextWindow(tf, ws).Add(-time.Second)
		if to.After(end) {
			to = end
		}

		usage, err := report.Generate(ctx, src, from, to)
		if err != nil {
			return nil, fmt.Errorf("aggregating %s starting at %s: %w", tf, ws.Format(time.RFC3339), err)
		}
		if len(usage.Tariffs) == 0 {
			continue
		}
		buckets = append(buckets, Bucket{
			Timeframe: tf,
			StartTime: from,
			EndTime:   to,
			Usage:     usage,
		})
	}
	return buckets, nil
}
