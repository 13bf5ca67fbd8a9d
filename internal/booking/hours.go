package booking

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidHours = errors.New("invalid opening hours")

// OpeningHours holds a space's posted open/close bounds as minutes since
// local midnight. Overnight spans (close <= open) are not supported and are
// rejected at parse time.
type OpeningHours struct {
	open  int
	close int
}

// ParseOpeningHours validates a pair of "HH:mm" strings.
func ParseOpeningHours(openTime, closeTime string) (OpeningHours, error) {
	open, err := parseClock(openTime)
	if err != nil {
		return OpeningHours{}, fmt.Errorf("%w: openTime %q", ErrInvalidHours, openTime)
	}
	closeM, err := parseClock(closeTime)
	if err != nil {
		return OpeningHours{}, fmt.Errorf("%w: closeTime %q", ErrInvalidHours, closeTime)
	}
	if closeM <= open {
		return OpeningHours{}, fmt.Errorf("%w: closeTime %q must be after openTime %q", ErrInvalidHours, closeTime, openTime)
	}
	return OpeningHours{open: open, close: closeM}, nil
}

// Contains reports whether the window's local time-of-day endpoints in loc
// fall within [open, close]. A window may start exactly at open and end
// exactly at close.
func (h OpeningHours) Contains(w Window, loc *time.Location) bool {
	start := minutesOfDay(w.Start().In(loc))
	end := minutesOfDay(w.End().In(loc))
	return start >= h.open && end <= h.close
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return minutesOfDay(t), nil
}
