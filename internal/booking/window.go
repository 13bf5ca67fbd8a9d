package booking

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is returned when a window cannot be built from its
// inputs: unparseable instants, zero values, or start not strictly before end.
var ErrInvalidInterval = errors.New("start time must be before end time")

// Window is the half-open interval [Start, End) a reservation occupies.
type Window struct {
	start time.Time
	end   time.Time
}

// NewWindow validates and normalizes a start/end pair to UTC at whole-second
// precision, matching what storage keeps, so a created reservation reads back
// with the same endpoints it was returned with.
func NewWindow(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, ErrInvalidInterval
	}
	start = start.UTC().Truncate(time.Second)
	end = end.UTC().Truncate(time.Second)
	if !start.Before(end) {
		return Window{}, ErrInvalidInterval
	}
	return Window{start: start, end: end}, nil
}

// ParseWindow builds a window from two RFC 3339 timestamps.
func ParseWindow(startStr, endStr string) (Window, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: invalid startTime %q", ErrInvalidInterval, startStr)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: invalid endTime %q", ErrInvalidInterval, endStr)
	}
	return NewWindow(start, end)
}

func (w Window) Start() time.Time { return w.start }
func (w Window) End() time.Time   { return w.end }

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.start.Before(other.end) && w.end.After(other.start)
}

// LocalClock renders both endpoints as zero-padded 24-hour "HH:mm" strings
// of local wall-clock time in loc.
func (w Window) LocalClock(loc *time.Location) (startClock, endClock string) {
	return w.start.In(loc).Format("15:04"), w.end.In(loc).Format("15:04")
}

func (w Window) String() string {
	return fmt.Sprintf("from %s to %s", w.start.Format(time.RFC3339), w.end.Format(time.RFC3339))
}
