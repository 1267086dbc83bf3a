package booking

import (
	"errors"
	"time"

	"stayly/internal/domain/shared/daterange"
)

var ErrCheckInInPast = errors.New("booking: check-in date is in the past")

// ValidateCheckIn rejects stays that start before today (UTC).
func ValidateCheckIn(dr daterange.DateRange, now time.Time) error {
	if dr.CheckIn.Before(daterange.StartOfDay(now)) {
		return ErrCheckInInPast
	}
	return nil
}
