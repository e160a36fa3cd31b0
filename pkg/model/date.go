package model

import "time"

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AfterToday reports whether date falls on a later UTC calendar day than now.
func AfterToday(date, now time.Time) bool {
	return DateOnly(date).After(DateOnly(now))
}
