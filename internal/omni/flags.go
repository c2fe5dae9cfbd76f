package omni

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	DatetimeLayout,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// ParseTime parses a UTC instant in one of the accepted command-line forms:
// "2006-01-02 15:04", "2006-01-02T15:04", RFC 3339, or a bare date.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// ParseHours parses an hour-of-day range "H1-H2" (e.g. "18-21").
func ParseHours(s string) (start, end int, err error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("hour range %q: want H1-H2", s)
	}
	if start, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
		return 0, 0, fmt.Errorf("hour range %q: %w", s, err)
	}
	if end, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
		return 0, 0, fmt.Errorf("hour range %q: %w", s, err)
	}
	return start, end, nil
}

// ParseWindow builds a validated window from command-line strings. An empty
// hours string means no hour-of-day restriction.
func ParseWindow(start, end, hours string) (TimeWindow, error) {
	s, err := ParseTime(start)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: start: %v", ErrInvalidWindow, err)
	}
	e, err := ParseTime(end)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: end: %v", ErrInvalidWindow, err)
	}
	w, err := NewTimeWindow(s, e)
	if err != nil || hours == "" {
		return w, err
	}
	h1, h2, err := ParseHours(hours)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	return w.WithHours(h1, h2)
}

// ParseFields resolves a field selection: "full", "coupling", or a
// comma-separated list of field names.
func ParseFields(list string) ([]string, error) {
	switch strings.TrimSpace(list) {
	case "", "full":
		return append([]string(nil), FullFields...), nil
	case "coupling":
		return append([]string(nil), CouplingFields...), nil
	}
	var out []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoFields
	}
	return out, nil
}
