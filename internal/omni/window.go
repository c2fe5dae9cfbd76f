package omni

import (
	"fmt"
	"time"
)

// HourRange is an inclusive hour-of-day window (0-23 at both ends).
type HourRange struct {
	Start int
	End   int
}

// TimeWindow is a closed interval of timestamps with an optional
// hour-of-day sub-window.
type TimeWindow struct {
	Start time.Time
	End   time.Time
	Hours *HourRange
}

// NewTimeWindow builds a validated window without an hour sub-window.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: start, End: end}
	return w, w.Validate()
}

// WithHours returns a copy of w restricted to [start, end] hours of day.
func (w TimeWindow) WithHours(start, end int) (TimeWindow, error) {
	w.Hours = &HourRange{Start: start, End: end}
	return w, w.Validate()
}

// Validate checks ordering of both intervals.
func (w TimeWindow) Validate() error {
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	if h := w.Hours; h != nil {
		if h.Start < 0 || h.End > 23 {
			return fmt.Errorf("%w: hours %d-%d outside 0-23", ErrInvalidWindow, h.Start, h.End)
		}
		if h.End < h.Start {
			return fmt.Errorf("%w: hour end %d before start %d", ErrInvalidWindow, h.End, h.Start)
		}
	}
	return nil
}

// Contains reports whether ts lies in the window, bounds inclusive.
func (w TimeWindow) Contains(ts time.Time) bool {
	if ts.Before(w.Start) || ts.After(w.End) {
		return false
	}
	if h := w.Hours; h != nil {
		hour := ts.Hour()
		if hour < h.Start || hour > h.End {
			return false
		}
	}
	return true
}

// RecordTime reconstructs a UTC timestamp from the OMNI time fields.
// Day-of-year is 1-indexed (day 1 = Jan 1).
func RecordTime(year, dayOfYear, hour, minute int) time.Time {
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return t.AddDate(0, 0, dayOfYear-1).
		Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}
