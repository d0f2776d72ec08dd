package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidSpan = errors.New("invalid span")

// ParseSpan parses "2024-01-01..2024-01-31" into the first second of the
// first day and the last second of the last day in loc.
func ParseSpan(span string, loc *time.Location) (time.Time, time.Time, error) {
	from, to, ok := strings.Cut(span, "..")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q, expected FROM..TO", ErrInvalidSpan, span)
	}

	begin, err := time.ParseInLocation(dateLayout, strings.TrimSpace(from), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSpan, err)
	}
	last, err := time.ParseInLocation(dateLayout, strings.TrimSpace(to), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSpan, err)
	}
	if last.Before(begin) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s ends before it starts", ErrInvalidSpan, span)
	}

	end := last.AddDate(0, 0, 1).Add(-time.Second)
	return begin, end, nil
}
