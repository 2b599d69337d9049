package models

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epw-platform/internal/epw"
)

const (
	midnightRecord = "1996,12,31,24,0,?9?9?9?9E0?9?9?9?9?9?9?9?9?9?9?9?9?9?9?9*9*9?9*9*9," +
		"4.0,-1.0,69,81100,0,0,294,0,0,0,0,0,0,0,130,6.2,9,9,48.3,7500,9,999999999,60,0.0310,0,88,0.210,999.0,99.0"
	sparseRecord = "2001,6,1,1,0,flags,99.9,99.9,999,999999,9999,9999,9999,9999,9999,9999,999999,999999,999999,9999,999,999,99,99,9999,99999,9,999999999,999,.999,999,99,999,999,99"
)

var denverFixture = filepath.Join("..", "epw", "testdata", "denver_day.epw")

func TestToObservation(t *testing.T) {
	station := uuid.New()

	tests := []struct {
		name        string
		line        string
		stationID   uuid.UUID
		wantErr     bool
		checkValues func(*testing.T, *Observation)
	}{
		{
			name:      "hour 24 is midnight of the next day",
			line:      midnightRecord,
			stationID: station,
			checkValues: func(t *testing.T, obs *Observation) {
				assert.Equal(t, station, obs.StationID)
				assert.Equal(t, time.Date(1997, 1, 1, 0, 0, 0, 0, time.UTC), obs.ObservedAt)
				assert.Equal(t, 24, obs.Hour)

				require.NotNil(t, obs.DryBulbTemperature)
				assert.Equal(t, 4.0, *obs.DryBulbTemperature)
				require.NotNil(t, obs.AtmosphericStationPressure)
				assert.Equal(t, 81100.0, *obs.AtmosphericStationPressure)
				require.NotNil(t, obs.TotalSkyCover)
				assert.Equal(t, 9.0, *obs.TotalSkyCover)
				assert.Nil(t, obs.LiquidPrecipitationDepth)
			},
		},
		{
			name:      "missing values are nil",
			line:      sparseRecord,
			stationID: station,
			checkValues: func(t *testing.T, obs *Observation) {
				assert.Nil(t, obs.DryBulbTemperature)
				assert.Nil(t, obs.DewPointTemperature)
				assert.Nil(t, obs.RelativeHumidity)
				assert.Nil(t, obs.AtmosphericStationPressure)
				assert.Nil(t, obs.WindDirection)
				assert.Nil(t, obs.TotalSkyCover)
				assert.Nil(t, obs.SnowDepth)
			},
		},
		{
			name:      "station is required",
			line:      midnightRecord,
			stationID: uuid.Nil,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := epw.FromEpwString(tt.line)
			require.True(t, ok)

			obs, err := ToObservation(tt.stationID, p)
			if tt.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, "station_id", vErr.Field)
				assert.False(t, vErr.IsTransient())
				return
			}
			require.NoError(t, err)
			tt.checkValues(t, obs)
		})
	}
}

func TestNewStation(t *testing.T) {
	f, err := epw.Load(denverFixture)
	require.NoError(t, err)

	s := NewStation(f)
	assert.Equal(t, StationID(f.Checksum()), s.ID)
	assert.Equal(t, "724666", s.WMONumber)
	assert.Equal(t, "CO", s.StateProvinceRegion)
	assert.Equal(t, 39.74, s.Latitude)
	assert.Equal(t, "Sunday", s.StartDayOfWeek)
	assert.Equal(t, "1/1", s.StartDate)
	assert.False(t, s.IsActual)
	assert.Equal(t, denverFixture, s.SourcePath)
}

func TestStationID_Deterministic(t *testing.T) {
	assert.Equal(t, StationID("0A1B2C3D"), StationID("0A1B2C3D"))
	assert.NotEqual(t, StationID("0A1B2C3D"), StationID("0A1B2C3E"))
	assert.Equal(t, uuid.Version(5), StationID("0A1B2C3D").Version())
}

func TestToDesignCondition(t *testing.T) {
	f, err := epw.Load(denverFixture)
	require.NoError(t, err)
	designs, err := f.DesignConditions()
	require.NoError(t, err)
	require.Len(t, designs, 1)

	dc, err := ToDesignCondition(uuid.New(), designs[0])
	require.NoError(t, err)
	assert.Equal(t, "Climate Design Data 2009 ASHRAE Handbook", dc.Title)

	var values map[string]float64
	require.NoError(t, json.Unmarshal(dc.Values, &values))
	assert.Equal(t, -18.8, values["Heating Dry Bulb Temperature 99.6%"])
	assert.Len(t, values, 63)
}

func TestToGroundTemperatureAndHoliday(t *testing.T) {
	f, err := epw.Load(denverFixture)
	require.NoError(t, err)
	depths, err := f.GroundTemperatureDepths()
	require.NoError(t, err)
	require.Len(t, depths, 3)

	id := uuid.New()
	g := ToGroundTemperature(id, depths[0])
	assert.Equal(t, id, g.StationID)
	assert.Equal(t, 0.5, g.DepthM)
	assert.Equal(t, -9999.0, g.SoilConductivity)
	require.Len(t, g.MonthlyTemperatures, 12)
	assert.Equal(t, -0.6, g.MonthlyTemperatures[0])

	h := ToHoliday(id, epw.Holiday{Name: "New Years Day", DateString: "1/ 1"})
	assert.Equal(t, "New Years Day", h.Name)
	assert.Equal(t, "1/ 1", h.Date)
}
