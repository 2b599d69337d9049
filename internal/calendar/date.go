// Package calendar provides the Date, Time and DateTime values used by the EPW
// engine. A Date always has an assumed base year and may carry an explicit one;
// typical-year weather data lives on the assumed year, actual-year data on the
// explicit year of the file.
package calendar

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultAssumedBaseYear is a non-leap year starting on a Thursday.
const DefaultAssumedBaseYear = 2009

// IsLeapYearNumber applies the Gregorian rule.
func IsLeapYearNumber(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear is 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYearNumber(year) {
		return 366
	}
	return 365
}

// DaysInMonth returns the number of days of m in year.
func DaysInMonth(m MonthOfYear, year int) int {
	switch m {
	case Feb:
		if IsLeapYearNumber(year) {
			return 29
		}
		return 28
	case Apr, Jun, Sep, Nov:
		return 30
	case Jan, Mar, May, Jul, Aug, Oct, Dec:
		return 31
	}
	return 0
}

// YearDescription constrains the assumed base year of dates that have no
// explicit year.
type YearDescription struct {
	IsLeapYear            bool
	YearStartsOnDayOfWeek *DayOfWeek
}

// AssumedBaseYear is the first year from 2009 on matching the description.
func (yd YearDescription) AssumedBaseYear() int {
	for y := DefaultAssumedBaseYear; y < DefaultAssumedBaseYear+400; y++ {
		if IsLeapYearNumber(y) != yd.IsLeapYear {
			continue
		}
		if yd.YearStartsOnDayOfWeek != nil && weekday(y, Jan, 1) != *yd.YearStartsOnDayOfWeek {
			continue
		}
		return y
	}
	return DefaultAssumedBaseYear
}

// Date is a proleptic Gregorian calendar date.
type Date struct {
	year     int
	month    MonthOfYear
	day      int
	explicit bool
}

func validate(m MonthOfYear, day, year int) error {
	if !m.Valid() {
		return fmt.Errorf("bad date: month %d out of range", int(m))
	}
	if day < 1 || day > DaysInMonth(m, year) {
		return fmt.Errorf("bad date: year = %d, month = %s(%d), day = %d", year, m, int(m), day)
	}
	return nil
}

// NewDate returns month/day on the default assumed base year.
func NewDate(m MonthOfYear, day int) (Date, error) {
	return newDate(m, day, DefaultAssumedBaseYear, false)
}

// NewDateWithYear returns a date with an explicit base year.
func NewDateWithYear(m MonthOfYear, day, year int) (Date, error) {
	return newDate(m, day, year, true)
}

// NewDateFromYearDescription places month/day on the year the description implies.
func NewDateFromYearDescription(m MonthOfYear, day int, yd YearDescription) (Date, error) {
	return newDate(m, day, yd.AssumedBaseYear(), false)
}

// MustDate is NewDateWithYear for values known to be valid.
func MustDate(m MonthOfYear, day, year int) Date {
	d, err := NewDateWithYear(m, day, year)
	if err != nil {
		panic(err)
	}
	return d
}

func newDate(m MonthOfYear, day, year int, explicit bool) (Date, error) {
	if err := validate(m, day, year); err != nil {
		return Date{}, err
	}
	return Date{year: year, month: m, day: day, explicit: explicit}, nil
}

func (d Date) Year() int                { return d.year }
func (d Date) AssumedBaseYear() int     { return d.year }
func (d Date) MonthOfYear() MonthOfYear { return d.month }
func (d Date) DayOfMonth() int          { return d.day }
func (d Date) IsZero() bool             { return d.month == 0 }
func (d Date) IsLeapYear() bool         { return IsLeapYearNumber(d.year) }

// BaseYear returns the explicit year, if the date was built with one.
func (d Date) BaseYear() (int, bool) {
	if !d.explicit {
		return 0, false
	}
	return d.year, true
}

// DayOfYear is 1 for January 1.
func (d Date) DayOfYear() int {
	return d.goTime().YearDay()
}

func (d Date) DayOfWeek() DayOfWeek {
	return weekday(d.year, d.month, d.day)
}

// WithoutYear drops the explicit year and re-validates the month/day on the
// default assumed year.
func (d Date) WithoutYear() (Date, error) {
	return NewDate(d.month, d.day)
}

// AddDays shifts the date, keeping its explicit or assumed nature.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.year, time.Month(d.month), d.day+n, 0, 0, 0, 0, time.UTC)
	return Date{year: t.Year(), month: MonthOfYear(t.Month()), day: t.Day(), explicit: d.explicit}
}

// AddTime shifts the date by the whole days in t.
func (d Date) AddTime(t Time) Date {
	return d.AddDays(t.Days())
}

// Sub returns d - o as a whole number of days.
func (d Date) Sub(o Date) Time {
	d.checkComparable(o)
	return NewTime(int(d.dayNumber()-o.dayNumber()), 0, 0, 0)
}

// Equal compares month and day, and the year unless exactly one side carries
// an explicit year.
func (d Date) Equal(o Date) bool {
	if d.month != o.month || d.day != o.day {
		return false
	}
	if d.explicit != o.explicit {
		return true
	}
	d.checkComparable(o)
	return d.year == o.year
}

func (d Date) Before(o Date) bool {
	d.checkComparable(o)
	return d.dayNumber() < o.dayNumber()
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// String formats as 2009-Jan-01.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%s-%02d", d.year, d.month, d.day)
}

// MonthDay formats as M/D, the form used by EPW and WTH headers.
func (d Date) MonthDay() string {
	return fmt.Sprintf("%d/%d", int(d.month), d.day)
}

func (d Date) checkComparable(o Date) {
	if !d.explicit && !o.explicit && d.year != o.year {
		zap.L().Warn("Comparing dates with different assumed base years",
			zap.Int("left", d.year), zap.Int("right", o.year))
	}
}

func (d Date) goTime() time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) dayNumber() int64 {
	return d.goTime().Unix() / secondsPerDay
}

func weekday(year int, m MonthOfYear, day int) DayOfWeek {
	return DayOfWeek(time.Date(year, time.Month(m), day, 0, 0, 0, 0, time.UTC).Weekday())
}
