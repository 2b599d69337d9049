package timeseries

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epw-platform/internal/calendar"
)

func hourly(t *testing.T, start calendar.DateTime, values ...float64) TimeSeries {
	t.Helper()
	dates := make([]calendar.DateTime, len(values))
	for i := range values {
		dates[i] = start.Add(calendar.NewTime(0, i+1, 0, 0))
	}
	ts, err := New(start, dates, values, "C")
	require.NoError(t, err)
	return ts
}

func TestNew_LengthMismatch(t *testing.T) {
	start := calendar.NewDateTime(calendar.MustDate(calendar.Jan, 1, 2013), calendar.Time{})
	_, err := New(start, []calendar.DateTime{start}, nil, "C")
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestTimeSeries_CSV(t *testing.T) {
	start := calendar.NewDateTime(calendar.MustDate(calendar.Jan, 1, 2013), calendar.Time{})
	ts := hourly(t, start, -3, -2.5, 1)

	var buf bytes.Buffer
	require.NoError(t, ts.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "datetime,value,units\n"), buf.String())

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2013-Jan-01 01:00:00", rows[0].DateTime)
	assert.Equal(t, -2.5, rows[1].Value)
	assert.Equal(t, "C", rows[2].Units)

	_, err = ReadCSV(strings.NewReader("datetime,value,units\nx,notanumber,C\n"))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Summary
	}{
		{name: "empty", values: nil, want: Summary{}},
		{name: "single value", values: []float64{4}, want: Summary{Count: 1, Mean: 4, Min: 4, Max: 4, Sum: 4}},
		{name: "several values", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, want: Summary{Count: 8, Mean: 5, Min: 2, Max: 9, Sum: 40, StdDev: 2.138089935299395}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			assert.Equal(t, tt.want.Count, got.Count)
			assert.Equal(t, tt.want.Min, got.Min)
			assert.Equal(t, tt.want.Max, got.Max)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-12)
			assert.InDelta(t, tt.want.Sum, got.Sum, 1e-12)
			assert.InDelta(t, tt.want.StdDev, got.StdDev, 1e-12)
		})
	}
}

func TestTimeSeries_MonthlySummaries(t *testing.T) {
	start := calendar.NewDateTime(calendar.MustDate(calendar.Jan, 31, 2013), calendar.NewTime(0, 21, 0, 0))
	// hour 24 of Jan 31 is midnight on Feb 1
	ts := hourly(t, start, 1, 3, 10)

	byMonth := ts.MonthlySummaries()
	require.Len(t, byMonth, 2)
	assert.Equal(t, 2, byMonth[calendar.Jan].Count)
	assert.Equal(t, 2.0, byMonth[calendar.Jan].Mean)
	assert.Equal(t, 10.0, byMonth[calendar.Feb].Max)
	assert.Equal(t, 3, ts.Summary().Count)
}

func TestTimeSeries_WritePNG(t *testing.T) {
	start := calendar.NewDateTime(calendar.MustDate(calendar.Jan, 1, 2013), calendar.Time{})
	ts := hourly(t, start, -3, -2, -4, 0, 2)

	var buf bytes.Buffer
	require.NoError(t, ts.WritePNG(&buf, "Dry Bulb Temperature"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	assert.Error(t, TimeSeries{}.WritePNG(&buf, "empty"))
}
