package calendar

import "fmt"

// DateTime is a Date plus a time of day in [00:00:00, 24:00:00).
type DateTime struct {
	date Date
	tod  Time
}

// NewDateTime folds any overflow of t into the date, so hour 24 of one day is
// midnight of the next.
func NewDateTime(d Date, t Time) DateTime {
	days := floorDiv(t.seconds, secondsPerDay)
	return DateTime{
		date: d.AddDays(int(days)),
		tod:  Time{seconds: t.seconds - days*secondsPerDay},
	}
}

func (dt DateTime) Date() Date { return dt.date }
func (dt DateTime) Time() Time { return dt.tod }

func (dt DateTime) Add(t Time) DateTime {
	return NewDateTime(dt.date, dt.tod.Add(t))
}

// Sub returns dt - o.
func (dt DateTime) Sub(o DateTime) Time {
	return dt.date.Sub(o.date).Add(dt.tod.Sub(o.tod))
}

func (dt DateTime) Equal(o DateTime) bool {
	return dt.date.Equal(o.date) && dt.tod.Equal(o.tod)
}

func (dt DateTime) Before(o DateTime) bool {
	return dt.Sub(o).TotalSeconds() < 0
}

// String formats as 2009-Jan-01 01:00:00.
func (dt DateTime) String() string {
	return fmt.Sprintf("%s %02d:%02d:%02d", dt.date, dt.tod.Hours(), dt.tod.Minutes(), dt.tod.Seconds())
}
