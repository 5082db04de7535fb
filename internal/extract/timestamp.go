package extract

import (
	"fmt"
	"strings"
	"time"
)

// naiveLayout is the timestamp layout shared by both dialects once any zone
// designator has been removed. Fractional seconds are accepted when parsing.
const naiveLayout = "2006-01-02T15:04:05"

// ParseNaive parses an ISO 8601 timestamp as a naive local time. A trailing
// "Z" or numeric offset is dropped without converting the clock reading, so
// "2024-03-01T23:00:00Z" is 23:00 on March 1st. The result is in time.UTC.
func ParseNaive(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Z")
	if len(s) > len(naiveLayout) {
		if i := strings.LastIndexAny(s[len(naiveLayout):], "+-"); i >= 0 {
			s = s[:len(naiveLayout)+i]
		}
	}

	t, err := time.Parse(naiveLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// calendarDay truncates t to midnight of its calendar date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
