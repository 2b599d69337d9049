package epw

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"epw-platform/internal/calendar"
)

const (
	tmyFixture = "denver_day.epw"
	amyFixture = "denver_amy.epw"
)

const bodyTail = "?9?9?9?9E0?9?9?9?9?9?9?9?9?9?9?9?9?9?9?9*9*9?9*9*9," +
	"-3.0,-4.0,92,80600,0,0,257,0,0,0,0,0,0,0,0,0.0,9,8,16.1,3300,9,999999999,89,0.0310,0,88,0.330,999.0,99.0"

func fixturePath(name string) string { return filepath.Join("testdata", name) }

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(fixturePath(name))
	require.NoError(t, err)
	return string(b)
}

// replaceLine swaps the first line starting with prefix.
func replaceLine(t *testing.T, content, prefix, line string) string {
	t.Helper()
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			lines[i] = line
			return strings.Join(lines, "\n")
		}
	}
	t.Fatalf("no line starting with %q", prefix)
	return ""
}

// headerOf returns the first seven header lines of a fixture, so a test can
// supply its own data period and body.
func headerOf(t *testing.T, name string) string {
	t.Helper()
	lines := strings.Split(readFixture(t, name), "\n")
	return strings.Join(lines[:7], "\n") + "\n"
}

func dataLine(year, month, day, hour int) string {
	return fmt.Sprintf("%d,%d,%d,%d,0,%s\n", year, month, day, hour, bodyTail)
}

func TestLoad_TypicalYear(t *testing.T) {
	path := fixturePath(tmyFixture)
	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, f.Path())
	assert.Equal(t, Checksum([]byte(readFixture(t, tmyFixture))), f.Checksum())
	assert.Regexp(t, `^[0-9A-F]{8}$`, f.Checksum())

	assert.Equal(t, "Denver Centennial  Golden   Nr", f.City())
	assert.Equal(t, "CO", f.StateProvinceRegion())
	assert.Equal(t, "USA", f.Country())
	assert.Equal(t, "TMY3", f.DataSource())
	assert.Equal(t, "724666", f.WMONumber())
	assert.Equal(t, 39.74, f.Latitude())
	assert.Equal(t, -105.18, f.Longitude())
	assert.Equal(t, -7.0, f.TimeZone())
	assert.Equal(t, 1829.0, f.Elevation())

	assert.Equal(t, 1, f.RecordsPerHour())
	assert.Equal(t, calendar.NewTime(0, 1, 0, 0), f.TimeStep())
	assert.Equal(t, calendar.Sunday, f.StartDayOfWeek())
	assert.Equal(t, "1/1", f.StartDate().MonthDay())
	assert.Equal(t, "1/1", f.EndDate().MonthDay())

	assert.False(t, f.IsActual(), "records more than a day apart make a typical year")
	_, ok := f.StartDateActualYear()
	assert.False(t, ok)
	_, ok = f.EndDateActualYear()
	assert.False(t, ok)

	assert.False(t, f.LeapYearObserved())
	assert.Empty(t, f.Holidays())
	_, ok = f.DaylightSavingStartDate()
	assert.False(t, ok)
	_, ok = f.DaylightSavingEndDate()
	assert.False(t, ok)

	assert.Equal(t, "Custom/User Format -- WMO#724666; NREL TMY Data Set (2008); Period of Record 1973-2005 (Generally)", f.Comments1())
	assert.Equal(t, "-- Ground temps produced with a standard soil diffusivity of 2.3225760E-03 {m**2/day}", f.Comments2())

	periods := f.TypicalExtremePeriods()
	require.Len(t, periods, 6)
	assert.Equal(t, TypicalExtremePeriod{
		Name:            "Summer - Week Nearest Max Temperature For Period",
		Type:            "Extreme",
		StartDateString: "7/ 6",
		EndDateString:   "7/12",
	}, periods[0])
	assert.Equal(t, "Spring - Week Nearest Average Temperature For Period", periods[5].Name)
}

func TestLoad_TypicalYearData(t *testing.T) {
	f, err := Load(fixturePath(tmyFixture))
	require.NoError(t, err)

	data, err := f.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, 2005, data[1].Year())
	assert.True(t, f.MinutesMatch())

	last := data[23]
	assert.Equal(t, 24, last.Hour())
	db, ok := last.DryBulbTemperature()
	require.True(t, ok)
	assert.Equal(t, -7.0, db)

	again, err := f.Data()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestLoad_DesignAndGround(t *testing.T) {
	f, err := Load(fixturePath(tmyFixture))
	require.NoError(t, err)

	designs, err := f.DesignConditions()
	require.NoError(t, err)
	require.Len(t, designs, 1)
	assert.Equal(t, "Climate Design Data 2009 ASHRAE Handbook", designs[0].TitleOfDesignCondition())
	v, ok := designs[0].GetField(HeatingDryBulb99pt6)
	require.True(t, ok)
	assert.Equal(t, -18.8, v)

	depths, err := f.GroundTemperatureDepths()
	require.NoError(t, err)
	require.Len(t, depths, 3)

	expected := [][]float64{
		{0.5, -9999, -9999, -9999, -0.6, 1.34, 5.12, 8.69, 15.46, 19.02, 20.0, 18.2, 14.02, 8.83, 3.71, 0.32},
		{2.0, -9999, -9999, -9999, 2.08, 2.55, 4.7, 7.1, 12.3, 15.62, 17.28, 16.91, 14.53, 10.94, 6.9, 3.72},
		{4.0, -9999, -9999, -9999, 4.84, 4.51, 5.45, 6.81, 10.25, 12.82, 14.49, 14.9, 13.86, 11.74, 9.0, 6.53},
	}
	for i, depth := range depths {
		for j, want := range expected[i] {
			got, ok := depth.GetField(DepthField(j))
			require.True(t, ok)
			assert.InDelta(t, want, got, 1e-12, "depth %d field %s", i, DepthField(j))
		}
	}
}

func TestLoad_ActualYear(t *testing.T) {
	f, err := Load(fixturePath(amyFixture), WithStoreData())
	require.NoError(t, err)

	assert.True(t, f.IsActual())
	startYear, ok := f.StartDateActualYear()
	require.True(t, ok)
	assert.Equal(t, 2013, startYear)
	endYear, ok := f.EndDateActualYear()
	require.True(t, ok)
	assert.Equal(t, 2013, endYear)

	y, ok := f.StartDate().BaseYear()
	require.True(t, ok)
	assert.Equal(t, 2013, y)
	assert.Equal(t, "2013-Jan-02", f.EndDate().String())

	data, err := f.Data()
	require.NoError(t, err)
	assert.Len(t, data, 48)
}

func TestLoad_HeaderVariants(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		line        string
		opts        []Option
		checkValues func(*testing.T, *File)
	}{
		{
			name:   "holidays and daylight saving",
			prefix: "HOLIDAYS/DAYLIGHT SAVINGS",
			line:   "HOLIDAYS/DAYLIGHT SAVINGS,No, 4/29,10/28,9,Hol:001, 1/ 1,Hol:002, 2/19,Hol:003, 5/28,Hol:004, 7/ 4,Hol:005, 9/ 3,Hol:006,10/ 8,Hol:007,11/12,Hol:008,11/22,Hol:009,12/25",
			checkValues: func(t *testing.T, f *File) {
				start, ok := f.DaylightSavingStartDate()
				require.True(t, ok)
				assert.Equal(t, "4/29", start.MonthDay())
				end, ok := f.DaylightSavingEndDate()
				require.True(t, ok)
				assert.Equal(t, "10/28", end.MonthDay())

				holidays := f.Holidays()
				require.Len(t, holidays, 9)
				assert.Equal(t, Holiday{Name: "Hol:001", DateString: "1/ 1"}, holidays[0])
				assert.Equal(t, Holiday{Name: "Hol:009", DateString: "12/25"}, holidays[8])
			},
		},
		{
			name:   "leap year observed",
			prefix: "HOLIDAYS/DAYLIGHT SAVINGS",
			line:   "holidays/daylight savings,Yes,0,0,0",
			checkValues: func(t *testing.T, f *File) {
				assert.True(t, f.LeapYearObserved())
			},
		},
		{
			name:   "data period year is kept for a typical year",
			prefix: "DATA PERIODS",
			line:   "DATA PERIODS,1,1,Data,Sunday, 1/ 1/2012,1/1/2012",
			checkValues: func(t *testing.T, f *File) {
				assert.False(t, f.IsActual())
				y, ok := f.StartDateActualYear()
				require.True(t, ok)
				assert.Equal(t, 2012, y)
			},
		},
		{
			name:   "design condition count mismatch is skipped",
			prefix: "DESIGN CONDITIONS",
			line:   "DESIGN CONDITIONS,1,Climate Design Data 2009 ASHRAE Handbook,,Heating,12",
			checkValues: func(t *testing.T, f *File) {
				designs, err := f.DesignConditions()
				require.NoError(t, err)
				assert.Empty(t, designs)
			},
		},
		{
			name:   "no design conditions",
			prefix: "DESIGN CONDITIONS",
			line:   "DESIGN CONDITIONS,0",
			checkValues: func(t *testing.T, f *File) {
				designs, err := f.DesignConditions()
				require.NoError(t, err)
				assert.Empty(t, designs)
			},
		},
		{
			name:   "malformed typical periods are dropped",
			prefix: "TYPICAL/EXTREME PERIODS",
			line:   "TYPICAL/EXTREME PERIODS,6,Summer,Extreme",
			checkValues: func(t *testing.T, f *File) {
				assert.Empty(t, f.TypicalExtremePeriods())
			},
		},
		{
			name:   "no ground temperatures",
			prefix: "GROUND TEMPERATURES",
			line:   "GROUND TEMPERATURES,0",
			checkValues: func(t *testing.T, f *File) {
				depths, err := f.GroundTemperatureDepths()
				require.NoError(t, err)
				assert.Empty(t, depths)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := replaceLine(t, readFixture(t, tmyFixture), tt.prefix, tt.line)
			f, err := LoadFromString(content, tt.opts...)
			require.NoError(t, err)
			tt.checkValues(t, f)
		})
	}
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name      string
		content   func(t *testing.T) string
		opts      []Option
		wantStage string
		wantLine  int
	}{
		{
			name: "short location",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, tmyFixture), "LOCATION", "LOCATION,Denver,CO,USA")
			},
			wantStage: StageLocation,
			wantLine:  1,
		},
		{
			name: "non-numeric latitude",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, tmyFixture), "LOCATION", "LOCATION,Denver,CO,USA,TMY3,724666,north,-105.18,-7.0,1829.0")
			},
			wantStage: StageLocation,
			wantLine:  1,
		},
		{
			name: "ground temperature count mismatch",
			content: func(t *testing.T) string {
				return strings.Replace(readFixture(t, tmyFixture), "GROUND TEMPERATURES,3,", "GROUND TEMPERATURES,2,", 1)
			},
			wantStage: StageGround,
			wantLine:  4,
		},
		{
			name: "bad daylight saving date",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, tmyFixture), "HOLIDAYS", "HOLIDAYS/DAYLIGHT SAVINGS,No,2/30,10/28,0")
			},
			wantStage: StageHolidays,
			wantLine:  5,
		},
		{
			name: "more than one data period",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, tmyFixture), "DATA PERIODS", "DATA PERIODS,2,1,Data,Sunday, 1/ 1,1/1")
			},
			wantStage: StageDataPeriod,
			wantLine:  8,
		},
		{
			name: "records per hour not dividing an hour",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, tmyFixture), "DATA PERIODS", "DATA PERIODS,1,7,Data,Sunday, 1/ 1,1/1")
			},
			wantStage: StageDataPeriod,
			wantLine:  8,
		},
		{
			name: "unknown start day of week",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, tmyFixture), "DATA PERIODS", "DATA PERIODS,1,1,Data,Caturday, 1/ 1,1/1")
			},
			wantStage: StageDataPeriod,
			wantLine:  8,
		},
		{
			name: "truncated header",
			content: func(t *testing.T) string {
				return headerOf(t, tmyFixture)
			},
			wantStage: StageHeader,
			wantLine:  8,
		},
		{
			name: "short data line",
			content: func(t *testing.T) string {
				return readFixture(t, tmyFixture) + "1999,1\n"
			},
			wantStage: StageData,
			wantLine:  33,
		},
		{
			name: "header start date differs from data",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, tmyFixture), "DATA PERIODS", "DATA PERIODS,1,1,Data,Sunday, 1/ 2,1/1")
			},
			wantStage: StageValidation,
		},
		{
			name: "no data",
			content: func(t *testing.T) string {
				return headerOf(t, tmyFixture) + "DATA PERIODS,1,1,Data,Sunday, 1/ 1,1/1\n"
			},
			wantStage: StageValidation,
		},
		{
			name: "strict actual year with wrong day of week",
			content: func(t *testing.T) string {
				return replaceLine(t, readFixture(t, amyFixture), "DATA PERIODS", "DATA PERIODS,1,1,Data,Sunday, 1/ 1,1/ 2")
			},
			opts:      []Option{WithStrictActualYear()},
			wantStage: StageValidation,
		},
		{
			name: "typical year wrapping into a new year",
			content: func(t *testing.T) string {
				return headerOf(t, tmyFixture) + "DATA PERIODS,1,1,Data,Sunday,12/31,1/1\n" +
					dataLine(1999, 12, 31, 24) + dataLine(2000, 1, 1, 1)
			},
			wantStage: StageValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := LoadFromString(tt.content(t), tt.opts...)
			require.Error(t, err)
			assert.Nil(t, f)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.wantStage, pe.Stage)
			if tt.wantLine > 0 {
				assert.Equal(t, tt.wantLine, pe.Line)
			}
		})
	}
}

func TestLoad_WrongDayOfWeekFallsBackToTypical(t *testing.T) {
	content := replaceLine(t, readFixture(t, amyFixture), "DATA PERIODS", "DATA PERIODS,1,1,Data,Sunday, 1/ 1,1/ 2")
	f, err := LoadFromString(content)
	require.NoError(t, err)
	assert.False(t, f.IsActual())
	_, ok := f.StartDateActualYear()
	assert.False(t, ok)
}

func TestLoad_ActualYearAcrossNewYear(t *testing.T) {
	// 1999-12-31 was a Friday
	content := headerOf(t, tmyFixture) + "DATA PERIODS,1,1,Data,Friday,12/31,1/1\n" +
		dataLine(1999, 12, 31, 24) + dataLine(2000, 1, 1, 1)
	f, err := LoadFromString(content, WithStoreData())
	require.NoError(t, err)

	assert.True(t, f.IsActual())
	start, _ := f.StartDateActualYear()
	end, _ := f.EndDateActualYear()
	assert.Equal(t, []int{1999, 2000}, []int{start, end})
}

func TestLoad_LeapDayCorrection(t *testing.T) {
	// the year jump makes this a typical year built from a leap February
	content := headerOf(t, tmyFixture) + "DATA PERIODS,1,1,Data,Sunday, 2/28,2/28\n" +
		dataLine(2005, 2, 28, 23) + dataLine(2012, 2, 28, 24)
	f, err := LoadFromString(content, WithStoreData())
	require.NoError(t, err)
	require.False(t, f.IsActual())

	data, err := f.Data()
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, 28, data[0].Day())
	assert.Equal(t, 29, data[1].Day())
}

func TestLoad_MinutesMismatch(t *testing.T) {
	content := strings.Replace(readFixture(t, tmyFixture), "1999,1,1,5,0,", "1999,1,1,5,60,", 1)

	f, err := LoadFromString(content)
	require.NoError(t, err)
	assert.True(t, f.MinutesMatch(), "minutes are checked when records are parsed")

	data, err := f.Data()
	require.NoError(t, err)
	assert.False(t, f.MinutesMatch())
	assert.Equal(t, 0, data[4].Minute(), "the derived minute wins")
}

func TestLoad_SubHourly(t *testing.T) {
	var body strings.Builder
	for hour := 1; hour <= 24; hour++ {
		for _, minute := range []int{30, 0} {
			fmt.Fprintf(&body, "2013,1,1,%d,%d,%s\n", hour, minute, bodyTail)
		}
	}
	content := headerOf(t, amyFixture) + "DATA PERIODS,1,2,Data,Tuesday, 1/ 1,1/ 1\n" + body.String()

	f, err := LoadFromString(content, WithStoreData())
	require.NoError(t, err)
	assert.True(t, f.MinutesMatch())
	assert.Equal(t, calendar.NewTime(0, 0, 30, 0), f.TimeStep())

	data, err := f.Data()
	require.NoError(t, err)
	require.Len(t, data, 48)
	assert.Equal(t, 30, data[0].Minute())
	assert.Equal(t, 0, data[1].Minute())
}

func TestLoad_CRLF(t *testing.T) {
	content := strings.ReplaceAll(readFixture(t, tmyFixture), "\n", "\r\n")
	f, err := LoadFromString(content, WithStoreData())
	require.NoError(t, err)
	assert.Equal(t, "TMY3", f.DataSource())

	data, err := f.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, "99", data[23].ToEpwStrings()[LiquidPrecipitationQuantity])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(fixturePath("missing.epw"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_ZeroValue(t *testing.T) {
	var f File
	_, err := f.Data()
	assert.ErrorIs(t, err, ErrNotParsed)
	_, err = f.DesignConditions()
	assert.ErrorIs(t, err, ErrNotParsed)
	_, err = f.GroundTemperatureDepths()
	assert.ErrorIs(t, err, ErrNotParsed)
}

func TestFile_ConcurrentData(t *testing.T) {
	f, err := Load(fixturePath(tmyFixture))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]DataPoint, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.Data()
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Len(t, r, 24)
	}
}

func TestFile_AccessorsReturnCopies(t *testing.T) {
	f, err := Load(fixturePath(tmyFixture), WithStoreData())
	require.NoError(t, err)

	first, err := f.Data()
	require.NoError(t, err)
	require.True(t, first[0].setFieldString(DryBulbTemperature, "55.5"))
	first[1] = NewEmptyDataPoint()

	again, err := f.Data()
	require.NoError(t, err)
	v, ok := again[0].DryBulbTemperature()
	require.True(t, ok)
	assert.Equal(t, -3.0, v)
	assert.Equal(t, 2005, again[1].Year())

	ts, err := f.GetTimeSeries("Dry Bulb Temperature")
	require.NoError(t, err)
	assert.Equal(t, -3.0, ts.Values[0])

	designs, err := f.DesignConditions()
	require.NoError(t, err)
	require.NotEmpty(t, designs)
	designs[0] = DesignCondition{}
	designs, err = f.DesignConditions()
	require.NoError(t, err)
	assert.Equal(t, "Climate Design Data 2009 ASHRAE Handbook", designs[0].TitleOfDesignCondition())

	depths, err := f.GroundTemperatureDepths()
	require.NoError(t, err)
	require.NotEmpty(t, depths)
	depths[0].SetField(GroundTemperatureDepthField, 99)
	depths, err = f.GroundTemperatureDepths()
	require.NoError(t, err)
	assert.Equal(t, 0.5, depths[0].Depth())

	periods := f.TypicalExtremePeriods()
	require.NotEmpty(t, periods)
	periods[0].Name = "changed"
	assert.NotEqual(t, "changed", f.TypicalExtremePeriods()[0].Name)
}

func TestLoad_DiagnosticsUseOptionLogger(t *testing.T) {
	globalCore, global := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(globalCore))
	defer restore()

	core, logs := observer.New(zapcore.DebugLevel)
	hot := strings.Replace(dataLine(2000, 1, 1, 1), ",-3.0,", ",75.0,", 1)
	content := headerOf(t, tmyFixture) + "DATA PERIODS,1,1,Data,Friday,12/31,1/1\n" +
		dataLine(1999, 12, 31, 24) + hot
	f, err := LoadFromString(content, WithStoreData(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	data, err := f.Data()
	require.NoError(t, err)
	require.Len(t, data, 2)
	v, ok := data[1].DryBulbTemperature()
	require.True(t, ok)
	assert.Equal(t, 75.0, v)

	assert.Equal(t, 1, logs.FilterMessage("[EPW_DATA_LIMITS] Value not within the expected limits").Len())
	assert.Zero(t, global.Len())
}
