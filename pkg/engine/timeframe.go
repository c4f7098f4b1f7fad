package engine

import (
	"strings"
	"time"
)

// timeWindow resolves the time range a (lower-cased) question refers to.
// "yesterday" is the previous UTC calendar day in full; "last week" is the
// most recently completed Monday-to-Sunday week. Anything else, including no
// time phrase at all, falls back to the trailing 24 hours ending now.
func timeWindow(q string, now time.Time) (time.Time, time.Time) {
	now = now.UTC()

	if strings.Contains(q, "yesterday") {
		y := now.AddDate(0, 0, -1)
		start := time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC)
		end := time.Date(y.Year(), y.Month(), y.Day(), 23, 59, 59, 0, time.UTC)
		return start, end
	}

	if strings.Contains(q, "last week") {
		// Monday of the current week, then one week back.
		sinceMonday := (int(now.Weekday()) + 6) % 7
		monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -sinceMonday-7)
		sunday := monday.AddDate(0, 0, 6)
		end := time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, time.UTC)
		return monday, end
	}

	return now.Add(-24 * time.Hour), now
}
