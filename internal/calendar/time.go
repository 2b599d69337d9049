package calendar

import (
	"fmt"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// Time is a signed span of whole seconds. It doubles as a time of day when
// paired with a Date in a DateTime.
type Time struct {
	seconds int64
}

// NewTime builds a Time from components that may mix signs, so
// NewTime(0, -1, 30, 0) is minus thirty minutes.
func NewTime(days, hours, minutes, seconds int) Time {
	var pos, neg int64
	for _, c := range []int64{
		int64(days) * secondsPerDay,
		int64(hours) * secondsPerHour,
		int64(minutes) * secondsPerMinute,
		int64(seconds),
	} {
		if c < 0 {
			neg += c
		} else {
			pos += c
		}
	}
	return Time{seconds: pos + neg}
}

// FromDuration truncates d to whole seconds.
func FromDuration(d time.Duration) Time {
	return Time{seconds: int64(d / time.Second)}
}

func (t Time) Duration() time.Duration {
	return time.Duration(t.seconds) * time.Second
}

// Days, Hours, Minutes and Seconds are the normalized components; each carries
// the sign of the whole span.
func (t Time) Days() int    { return int(t.seconds / secondsPerDay) }
func (t Time) Hours() int   { return int((t.seconds / secondsPerHour) % 24) }
func (t Time) Minutes() int { return int((t.seconds / secondsPerMinute) % 60) }
func (t Time) Seconds() int { return int(t.seconds % 60) }

func (t Time) TotalSeconds() int64   { return t.seconds }
func (t Time) TotalMinutes() float64 { return float64(t.seconds) / secondsPerMinute }
func (t Time) TotalHours() float64   { return float64(t.seconds) / secondsPerHour }
func (t Time) TotalDays() float64    { return float64(t.seconds) / secondsPerDay }
func (t Time) Add(o Time) Time       { return Time{seconds: t.seconds + o.seconds} }
func (t Time) Sub(o Time) Time       { return Time{seconds: t.seconds - o.seconds} }
func (t Time) Neg() Time             { return Time{seconds: -t.seconds} }
func (t Time) Equal(o Time) bool     { return t.seconds == o.seconds }
func (t Time) Before(o Time) bool    { return t.seconds < o.seconds }
func (t Time) IsZero() bool          { return t.seconds == 0 }
func (t Time) Scale(n int) Time      { return Time{seconds: t.seconds * int64(n)} }
func (t Time) Abs() Time             { return Time{seconds: abs64(t.seconds)} }

// String formats as [-][Dd ]HH:MM:SS.
func (t Time) String() string {
	s := t.seconds
	sign := ""
	if s < 0 {
		sign = "-"
		s = -s
	}
	d := s / secondsPerDay
	s -= d * secondsPerDay
	clock := fmt.Sprintf("%02d:%02d:%02d", s/secondsPerHour, (s/secondsPerMinute)%60, s%60)
	if d != 0 {
		return fmt.Sprintf("%s%dd %s", sign, d, clock)
	}
	return sign + clock
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
