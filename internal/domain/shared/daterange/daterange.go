package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [checkIn, checkOut) of whole days.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New truncates both ends to UTC midnight and rejects empty or inverted ranges.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: StartOfDay(checkIn), CheckOut: StartOfDay(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Must is New for fixtures and tests.
func Must(checkIn, checkOut time.Time) DateRange {
	dr, err := New(checkIn, checkOut)
	if err != nil {
		panic(err)
	}
	return dr
}

// StartOfDay returns midnight UTC of the calendar day t falls on in UTC.
func StartOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(StartOfDay(dr.CheckOut).Sub(StartOfDay(dr.CheckIn)) / day)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// Contains reports whether other lies fully inside dr.
func (dr DateRange) Contains(other DateRange) bool {
	return !other.CheckIn.Before(dr.CheckIn) && !other.CheckOut.After(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

// EachNight calls fn with the start of every night in the range.
func (dr DateRange) EachNight(fn func(night time.Time)) {
	for d := StartOfDay(dr.CheckIn); d.Before(dr.CheckOut); d = d.Add(day) {
		fn(d)
	}
}
