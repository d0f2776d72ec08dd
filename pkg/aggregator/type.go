package aggregator

import (
	"fmt"
	"time"

	"github.com/NotCoffee418/european_smart_meter/pkg/report"
)

type Timeframe uint8

const (
	Hourly Timeframe = iota + 1
	Daily
	Monthly
)

func ParseTimeframe(s string) (Timeframe, error) {
	switch s {
	case "hour", "hourly":
		return Hourly, nil
	case "day", "daily":
		return Daily, nil
	case "month", "monthly":
		return Monthly, nil
	default:
		return 0, fmt.Errorf("unknown timeframe %q (want hour, day or month)", s)
	}
}

func (tf Timeframe) String() string {
	switch tf {
	case Hourly:
		return "hour"
	case Daily:
		return "day"
	case Monthly:
		return "month"
	default:
		return "unknown"
	}
}

// Bucket is the usage of one aligned window.
type Bucket struct {
	Timeframe Timeframe
	StartTime time.Time
	EndTime   time.Time
	Usage     *report.Usage
}
