package analytics

import (
	"fmt"
	"time"
)

// Range is a dashboard date range.
type Range string

const (
	RangeToday  Range = "today"
	Range7Days  Range = "7d"
	Range30Days Range = "30d"
)

// ParseRange accepts today, 7d or 30d. Empty means 7d.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case "":
		return Range7Days, nil
	case RangeToday, Range7Days, Range30Days:
		return Range(s), nil
	}
	return "", fmt.Errorf("analytics: unknown range %q", s)
}

// Since is the inclusive lower bound for r. "today" starts at local
// midnight in loc.
func (r Range) Since(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	switch r {
	case RangeToday:
		local := now.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	case Range30Days:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return now.Add(-7 * 24 * time.Hour)
	}
}
