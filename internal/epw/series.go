package epw

import (
	"fmt"

	"go.uber.org/zap"

	"epw-platform/internal/calendar"
	"epw-platform/internal/timeseries"
)

// GetTimeSeries returns the named data field over the whole file, skipping
// records where it is missing. Records of a typical-year file are placed on
// the assumed base year.
func (f *File) GetTimeSeries(name string) (timeseries.TimeSeries, error) {
	data, err := f.Data()
	if err != nil {
		return timeseries.TimeSeries{}, err
	}
	field, err := ParseDataField(name)
	if err != nil {
		f.logger.Warn("[EPW_UNKNOWN_FIELD] Unrecognized EPW data field", zap.String("name", name))
		return timeseries.TimeSeries{}, err
	}

	var dates []calendar.DateTime
	var values []float64
	for _, pt := range data {
		v, ok := pt.GetField(field)
		if !ok {
			continue
		}
		dt, err := pt.DateTime()
		if err != nil {
			return timeseries.TimeSeries{}, err
		}
		if !f.isActual {
			if dt, err = stripYear(dt, pt.Year()); err != nil {
				return timeseries.TimeSeries{}, err
			}
		}
		dates = append(dates, dt)
		values = append(values, v)
	}
	return f.series(dates, values, field.Units(), name)
}

// GetComputedTimeSeries returns a psychrometric quantity over the whole
// file. Dates keep the years of the records.
func (f *File) GetComputedTimeSeries(name string) (timeseries.TimeSeries, error) {
	data, err := f.Data()
	if err != nil {
		return timeseries.TimeSeries{}, err
	}
	field, err := ParseComputedField(name)
	if err != nil {
		f.logger.Warn("[EPW_UNKNOWN_FIELD] Unrecognized computed data field", zap.String("name", name))
		return timeseries.TimeSeries{}, err
	}

	var dates []calendar.DateTime
	var values []float64
	for _, pt := range data {
		v, ok := pt.GetComputedField(field)
		if !ok {
			continue
		}
		dt, err := pt.DateTime()
		if err != nil {
			return timeseries.TimeSeries{}, err
		}
		dates = append(dates, dt)
		values = append(values, v)
	}
	return f.series(dates, values, field.Units(), name)
}

func (f *File) series(dates []calendar.DateTime, values []float64, units, name string) (timeseries.TimeSeries, error) {
	if len(values) == 0 {
		return timeseries.TimeSeries{}, fmt.Errorf("%w for %q", ErrNoData, name)
	}
	start := dates[0].Add(calendar.NewTime(0, 0, 0, -3600/f.recordsPerHour))
	return timeseries.New(start, dates, values, units)
}

// stripYear moves dt onto the assumed base year. Hour 24 of the last day of
// the record's year lands on January 1 of the following assumed year.
func stripYear(dt calendar.DateTime, recordYear int) (calendar.DateTime, error) {
	d := dt.Date()
	stripped, err := d.WithoutYear()
	if err != nil {
		return calendar.DateTime{}, fmt.Errorf("strip year from %s: %w", d, err)
	}
	if d.Year() > recordYear {
		stripped = stripped.AddDays(calendar.DaysInYear(stripped.Year()))
	}
	return calendar.NewDateTime(stripped, dt.Time()), nil
}
