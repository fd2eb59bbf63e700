package domain

import "time"

// DateLayout is the calendar-date format used for scheduled dates and
// route dates throughout the system.
const DateLayout = "2006-01-02"

// ParseDate validates and parses a calendar date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Validationf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// DaysUntil returns the whole calendar days from `from` until the given
// date string. Negative when the date is in the past.
func DaysUntil(date string, from time.Time) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(fromDay).Hours() / 24), nil
}
