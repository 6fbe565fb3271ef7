package scheduling

import (
	"fmt"
	"time"
)

// DateLayout is the wire and form layout for calendar days.
const DateLayout = "2006-01-02"

var (
	// Sentinel bounds used when a candidate carries no date.
	minDay = time.Date(1000, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDay = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// IsUnbounded reports whether the window is the all-time sentinel range.
func (w Window) IsUnbounded() bool {
	return w.Start.Equal(minDay) && w.End.Equal(maxDay)
}

// Unbounded returns the all-time window.
func Unbounded() Window {
	return Window{Start: minDay, End: maxDay}
}

// DayWindow returns the calendar day containing t in loc. A zero t yields
// the unbounded window.
func DayWindow(t time.Time, loc *time.Location) Window {
	if t.IsZero() {
		return Unbounded()
	}
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseDay parses a calendar day in loc. An empty string is the zero time.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// DayKey is the calendar day of t in loc formatted with DateLayout.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
