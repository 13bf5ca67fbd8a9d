package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coworkd/internal/models"
)

var (
	ErrNotFound      = errors.New("reservation not found")
	ErrSpaceNotFound = errors.New("coworking space not found")
	ErrForbidden     = errors.New("not authorized for this reservation")
)

// OutOfHoursError reports a window outside the space's posted hours.
type OutOfHoursError struct {
	OpenTime  string
	CloseTime string
}

func (e *OutOfHoursError) Error() string {
	return fmt.Sprintf("reservation time must be within the opening hours of the coworking space (%s - %s)", e.OpenTime, e.CloseTime)
}

// QuotaExceededError reports a non-admin user at the reservation cap.
type QuotaExceededError struct {
	UserID int64
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("user with ID %d has already made %d reservations", e.UserID, e.Limit)
}

// ConflictError carries every reservation that overlaps the requested window.
type ConflictError struct {
	Conflicts []models.Reservation
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, r := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("from %s to %s",
			r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339)))
	}
	return "the coworking space is already reserved for the selected time period. Overlapping reservations: " + strings.Join(parts, ", ")
}
