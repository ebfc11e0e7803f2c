package utils

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

const secondsPerDay = 24 * 60 * 60

// Day truncates t to midnight UTC of its calendar date. All ledger dates are
// compared at this granularity.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in UTC.
func Today() time.Time {
	return Day(time.Now().UTC())
}

// AddDays moves a calendar day forward (or backward for negative n).
func AddDays(t time.Time, n int) time.Time {
	d := Day(t)
	return time.Date(d.Year(), d.Month(), d.Day()+n, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from start to end. It is
// negative when end is before start.
func DaysBetween(start, end time.Time) int {
	return int((Day(end).Unix() - Day(start).Unix()) / secondsPerDay)
}

// ParseDay parses a yyyy-mm-dd string into a calendar day.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(ShortDashDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, value, err)
	}
	return t, nil
}

// MaxDay returns the later of two days.
func MaxDay(a, b time.Time) time.Time {
	if Day(a).After(Day(b)) {
		return Day(a)
	}
	return Day(b)
}

// MinDay returns the earlier of two days.
func MinDay(a, b time.Time) time.Time {
	if Day(a).Before(Day(b)) {
		return Day(a)
	}
	return Day(b)
}

// GenerateDates returns every calendar day from startDate to endDate inclusive.
func GenerateDates(startDate, endDate time.Time) ([]time.Time, error) {
	start, end := Day(startDate), Day(endDate)
	if end.Before(start) {
		return nil, fmt.Errorf("endDate must be after startDate")
	}

	dates := make([]time.Time, 0, DaysBetween(start, end)+1)
	for currentDate := start; !currentDate.After(end); currentDate = AddDays(currentDate, 1) {
		dates = append(dates, currentDate)
	}

	return dates, nil
}
