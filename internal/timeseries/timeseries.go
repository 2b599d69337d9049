// Package timeseries holds a dated series of values with a unit and its
// CSV, statistics and chart renderings.
package timeseries

import (
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"epw-platform/internal/calendar"
)

// ErrLengthMismatch is returned when dates and values differ in length.
var ErrLengthMismatch = errors.New("timeseries: dates and values differ in length")

// TimeSeries is a sequence of interval-ending timestamps and their values.
// Start is the beginning of the first interval.
type TimeSeries struct {
	Start     calendar.DateTime
	DateTimes []calendar.DateTime
	Values    []float64
	Units     string
}

func New(start calendar.DateTime, dateTimes []calendar.DateTime, values []float64, units string) (TimeSeries, error) {
	if len(dateTimes) != len(values) {
		return TimeSeries{}, fmt.Errorf("%w: %d dates, %d values", ErrLengthMismatch, len(dateTimes), len(values))
	}
	return TimeSeries{Start: start, DateTimes: dateTimes, Values: values, Units: units}, nil
}

func (ts TimeSeries) Len() int { return len(ts.Values) }

// FirstReportDateTime is the start of the first reporting interval.
func (ts TimeSeries) FirstReportDateTime() calendar.DateTime { return ts.Start }

// Row is one CSV line.
type Row struct {
	DateTime string  `csv:"datetime"`
	Value    float64 `csv:"value"`
	Units    string  `csv:"units"`
}

func (ts TimeSeries) Rows() []*Row {
	rows := make([]*Row, len(ts.Values))
	for i, v := range ts.Values {
		rows[i] = &Row{DateTime: ts.DateTimes[i].String(), Value: v, Units: ts.Units}
	}
	return rows
}

// WriteCSV writes a header line and one row per value.
func (ts TimeSeries) WriteCSV(w io.Writer) error {
	return gocsv.Marshal(ts.Rows(), w)
}

// ReadCSV reads rows written by WriteCSV.
func ReadCSV(r io.Reader) ([]*Row, error) {
	var rows []*Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("timeseries csv: %w", err)
	}
	return rows, nil
}

// Summary describes the distribution of a set of values.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	Sum    float64 `json:"sum"`
}

// Summarize is zero-valued for no values. StdDev is the sample standard
// deviation and is 0 for a single value.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{
		Count: len(values),
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Sum:   floats.Sum(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

func (ts TimeSeries) Summary() Summary { return Summarize(ts.Values) }

// MonthlySummaries groups values by the month of their timestamp.
func (ts TimeSeries) MonthlySummaries() map[calendar.MonthOfYear]Summary {
	byMonth := make(map[calendar.MonthOfYear][]float64)
	for i, v := range ts.Values {
		m := ts.DateTimes[i].Date().MonthOfYear()
		byMonth[m] = append(byMonth[m], v)
	}
	out := make(map[calendar.MonthOfYear]Summary, len(byMonth))
	for m, vs := range byMonth {
		out[m] = Summarize(vs)
	}
	return out
}
