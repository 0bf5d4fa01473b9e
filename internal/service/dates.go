package service

import (
	"fmt"
	"time"
)

// Dates are stored as the strings the SPA writes: full ISO timestamps
// ("2024-05-10T12:00:00.000Z") or plain dates ("2024-05-10").

const (
	isoLayout      = "2006-01-02T15:04:05.000Z07:00"
	dateOnlyLayout = "2006-01-02"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dateOnlyLayout,
}

// parseDate returns the parsed time and the layout that matched.
func parseDate(s string) (time.Time, string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unrecognized date %q", s)
}

// toISO formats t like JavaScript's Date.toISOString.
func toISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// civilDate truncates a stored date to its calendar day in loc. Plain dates
// are taken literally.
func civilDate(s string, loc *time.Location) (time.Time, bool) {
	t, layout, err := parseDate(s)
	if err != nil {
		return time.Time{}, false
	}
	// Only strings carrying an offset are shifted; the others are wall clock.
	if layout == time.RFC3339 || layout == time.RFC3339Nano {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// today is the calendar day of now in loc.
func today(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b (negative when b is earlier).
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// addOneMonth advances a stored date by one calendar month, keeping its
// format. Day overflow rolls into the next month like Date.setMonth.
func addOneMonth(s string) (string, error) {
	t, layout, err := parseDate(s)
	if err != nil {
		return "", err
	}
	next := t.AddDate(0, 1, 0)
	switch layout {
	case dateOnlyLayout:
		return next.Format(dateOnlyLayout), nil
	case time.RFC3339, time.RFC3339Nano:
		return toISO(next), nil
	default:
		return next.Format(layout), nil
	}
}
