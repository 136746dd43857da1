// Package calendar maps requested dates onto NBP quotation (business) dates.
package calendar

import "time"

type monthDay struct {
	month time.Month
	day   int
}

// Fixed public holidays, matched by month and day in every year.
var holidays = map[monthDay]struct{}{
	{time.January, 1}:   {},
	{time.January, 6}:   {},
	{time.May, 1}:       {},
	{time.May, 3}:       {},
	{time.August, 15}:   {},
	{time.November, 1}:  {},
	{time.November, 11}: {},
	{time.December, 24}: {},
	{time.December, 25}: {},
	{time.December, 26}: {},
}

// Date strips the clock from t and returns its calendar date at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := holidays[monthDay{t.Month(), t.Day()}]
	return !holiday
}

// Adjust returns the closest business day on or before date.
func Adjust(date time.Time) time.Time {
	d := Date(date)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
