package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// MonthOfYear is a calendar month, January = 1.
type MonthOfYear int

const (
	Jan MonthOfYear = iota + 1
	Feb
	Mar
	Apr
	May
	Jun
	Jul
	Aug
	Sep
	Oct
	Nov
	Dec
)

var monthNames = [...]string{"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

// Valid reports whether m is in 1..12.
func (m MonthOfYear) Valid() bool {
	return m >= Jan && m <= Dec
}

// String returns the three letter abbreviation used in date strings.
func (m MonthOfYear) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	return monthNames[m][:3]
}

// FullName returns the English month name.
func (m MonthOfYear) FullName() string {
	if !m.Valid() {
		return m.String()
	}
	return monthNames[m]
}

// ParseMonthOfYear accepts a month number or an English name or abbreviation.
func ParseMonthOfYear(s string) (MonthOfYear, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		m := MonthOfYear(n)
		if !m.Valid() {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return m, nil
	}
	for i := Jan; i <= Dec; i++ {
		if strings.EqualFold(s, monthNames[i]) || strings.EqualFold(s, monthNames[i][:3]) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// DayOfWeek is a day of the week, Sunday = 0.
type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (d DayOfWeek) Valid() bool {
	return d >= Sunday && d <= Saturday
}

func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return dayNames[d]
}

// Next returns the following day, wrapping Saturday to Sunday.
func (d DayOfWeek) Next() DayOfWeek {
	return (d + 1) % 7
}

// ParseDayOfWeek matches full English day names, ignoring case and surrounding space.
func ParseDayOfWeek(s string) (DayOfWeek, error) {
	s = strings.TrimSpace(s)
	for i, name := range dayNames {
		if strings.EqualFold(s, name) {
			return DayOfWeek(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", s)
}
