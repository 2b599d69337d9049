package epw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epw-platform/internal/calendar"
	"epw-platform/internal/timeseries"
)

func TestGetTimeSeries(t *testing.T) {
	tests := []struct {
		name        string
		fixture     string
		field       string
		computed    bool
		wantErr     error
		checkValues func(*testing.T, timeseries.TimeSeries)
	}{
		{
			name:    "typical year is placed on the assumed year",
			fixture: tmyFixture,
			field:   "Dry Bulb Temperature",
			checkValues: func(t *testing.T, ts timeseries.TimeSeries) {
				require.Equal(t, 24, ts.Len())
				assert.Equal(t, "C", ts.Units)
				assert.Equal(t, "2009-Jan-01 00:00:00", ts.FirstReportDateTime().String())
				assert.Equal(t, "2009-Jan-01 01:00:00", ts.DateTimes[0].String())
				assert.Equal(t, "2009-Jan-01 02:00:00", ts.DateTimes[1].String())
				assert.Equal(t, "2009-Jan-02 00:00:00", ts.DateTimes[23].String())
				assert.Equal(t, -3.0, ts.Values[0])
				assert.Equal(t, -7.0, ts.Values[23])
			},
		},
		{
			name:    "actual year keeps its dates",
			fixture: amyFixture,
			field:   "Wind Speed",
			checkValues: func(t *testing.T, ts timeseries.TimeSeries) {
				require.Equal(t, 48, ts.Len())
				assert.Equal(t, "m/s", ts.Units)
				assert.Equal(t, "2013-Jan-01 00:00:00", ts.FirstReportDateTime().String())
				assert.Equal(t, "2013-Jan-03 00:00:00", ts.DateTimes[47].String())
				assert.Equal(t, 6.7, ts.Values[47])
			},
		},
		{
			name:     "computed series keeps record years",
			fixture:  tmyFixture,
			field:    "Enthalpy",
			computed: true,
			checkValues: func(t *testing.T, ts timeseries.TimeSeries) {
				require.Equal(t, 24, ts.Len())
				assert.Equal(t, "kJ/kg", ts.Units)
				assert.Equal(t, "1999-Jan-01 00:00:00", ts.FirstReportDateTime().String())
				assert.Equal(t, "2005-Jan-01 02:00:00", ts.DateTimes[1].String())
			},
		},
		{
			name:    "field missing everywhere",
			fixture: tmyFixture,
			field:   "Snow Depth",
			wantErr: ErrNoData,
		},
		{
			name:    "unknown field",
			fixture: tmyFixture,
			field:   "Cloudiness",
			wantErr: ErrUnknownField,
		},
		{
			name:     "unknown computed field",
			fixture:  tmyFixture,
			field:    "Dry Bulb Temperature",
			computed: true,
			wantErr:  ErrUnknownField,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Load(fixturePath(tt.fixture))
			require.NoError(t, err)

			get := f.GetTimeSeries
			if tt.computed {
				get = f.GetComputedTimeSeries
			}
			ts, err := get(tt.field)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkValues(t, ts)
		})
	}
}

func TestStripYear(t *testing.T) {
	endOfYear := calendar.NewDateTime(calendar.MustDate(calendar.Dec, 31, 1999), calendar.NewTime(0, 24, 0, 0))
	stripped, err := stripYear(endOfYear, 1999)
	require.NoError(t, err)
	assert.Equal(t, "2010-Jan-01 00:00:00", stripped.String())

	midYear := calendar.NewDateTime(calendar.MustDate(calendar.Jul, 4, 1999), calendar.NewTime(0, 13, 0, 0))
	stripped, err = stripYear(midYear, 1999)
	require.NoError(t, err)
	assert.Equal(t, "2009-Jul-04 13:00:00", stripped.String())
	_, explicit := stripped.Date().BaseYear()
	assert.False(t, explicit)

	leapDay := calendar.NewDateTime(calendar.MustDate(calendar.Feb, 29, 2012), calendar.NewTime(0, 1, 0, 0))
	_, err = stripYear(leapDay, 2012)
	assert.Error(t, err)
}
