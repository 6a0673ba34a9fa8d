package core

import "time"

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Midnight truncates any time to its calendar date at midnight UTC.
func Midnight(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts RFC3339 timestamps or plain "2006-01-02" dates and
// normalizes to midnight. The zero Date and an error are returned for
// anything unparseable.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Midnight(t.UTC()), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Midnight(t), nil
	}
	return Date{}, ErrInvalidDate
}

// Key formats the date as a YYYY-MM-DD cache key.
func (d Date) Key() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the whole number of days from start to d. Negative when
// d precedes start. Both dates are midnight-normalized so the division is
// exact.
func (d Date) DaysSince(start Date) int {
	return int(d.Sub(start.Time) / (24 * time.Hour))
}

// BeforeDate reports whether d falls strictly before other.
func (d Date) BeforeDate(other Date) bool {
	return d.Before(other.Time)
}

// AfterDate reports whether d falls strictly after other.
func (d Date) AfterDate(other Date) bool {
	return d.After(other.Time)
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthEnd returns the last day of the month offset months after the given
// year/month (offset 0 is the month itself).
func MonthEnd(year, month, offset int) Date {
	return Date{Time: time.Date(year, time.Month(month+offset)+1, 0, 0, 0, 0, 0, time.UTC)}
}

// MinDate returns the earlier of two dates; zero dates are ignored so a
// single set date wins.
func MinDate(a, b Date) Date {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case a.After(b.Time):
		return b
	default:
		return a
	}
}
