package core

import (
	"errors"
	"fmt"
	"time"
)

// Date is a calendar day. Transactions are stored with separate day,
// month and year columns, so the engine keeps dates as plain ints
// instead of a time.Time with a spurious time of day.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate builds a date; it does not normalize out-of-range values,
// Validate does the checking.
func NewDate(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// Today is the current local calendar day.
func Today() Date {
	now := time.Now()
	return Date{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("invalid month %d", d.Month)
	}
	if d.Day < 1 || d.Day > daysInMonth(d.Year, d.Month) {
		return fmt.Errorf("invalid day %d for %04d-%02d", d.Day, d.Year, d.Month)
	}
	return nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) Equal(o Date) bool { return d == o }

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool { return o.Before(d) }

// AddDays steps the date forward (or back, for negative n) by whole
// days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// AddMonths steps by calendar months, clamping the day to the last day
// of the target month: Jan 31 + 1 month is Feb 28 (or 29), not Mar 3.
func (d Date) AddMonths(n int) Date {
	total := d.Year*12 + (d.Month - 1) + n
	year := total / 12
	month := total%12 + 1
	if total < 0 && total%12 != 0 {
		// integer division truncates toward zero, calendar math needs floor
		year = (total - 11) / 12
		month = total - year*12 + 1
	}
	day := d.Day
	if max := daysInMonth(year, month); day > max {
		day = max
	}
	return Date{Year: year, Month: month, Day: day}
}

// DaysUntil is the number of whole days from d to o; negative when o is
// earlier.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

func daysInMonth(year, month int) int {
	// day zero of the next month is the last day of this one
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
