package psychro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaturationPressure(t *testing.T) {
	tests := []struct {
		name    string
		drybulb float64
		want    float64
	}{
		{"below freezing", -10, 259.9028649521791},
		{"freezing point", 0, 611.212867451187},
		{"room temperature", 20, 2338.8037000739732},
		{"boiling", 100, 101418.71682799199},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SaturationPressure(tt.drybulb), 1e-6)
		})
	}
}

func TestSaturationPressureDerivative_MatchesFiniteDifference(t *testing.T) {
	for _, tc := range []float64{-40, -5, 5, 25, 80} {
		h := 1e-4
		fd := (SaturationPressure(tc+h) - SaturationPressure(tc-h)) / (2 * h)
		got := SaturationPressureDerivative(tc, SaturationPressure(tc))
		assert.InEpsilon(t, fd, got, 1e-5, "at %v C", tc)
	}
}

func TestDefaultAirState(t *testing.T) {
	s := DefaultAirState()
	assert.Equal(t, 20.0, s.DryBulb())
	assert.Equal(t, 101325.0, s.Pressure())
	assert.InDelta(t, 50.0, s.RelativeHumidity(), 1e-12)
	assert.InDelta(t, 2338.8037000739732, s.SaturationPressure(), 1e-6)
	assert.InDelta(t, 0.007261737207462549, s.HumidityRatio(), 1e-12)
	assert.InDelta(t, 38.551741379981436, s.Enthalpy(), 1e-9)
	assert.InDelta(t, 0.0008401563479221615, s.SpecificVolume(), 1e-15)
	assert.InDelta(t, 1/s.SpecificVolume(), s.Density(), 1e-9)
	assert.InDelta(t, 9.27239232940377, s.DewPoint(), 1e-6)
	assert.InDelta(t, 13.78355555705588, s.WetBulb(), 1e-6)
	assert.InDelta(t, 287.042463577988, R(), 1e-9)
}

func TestAirStateConstructorsAgree(t *testing.T) {
	fromRH, ok := FromDryBulbRelativeHumidityPressure(20, 50, 101325)
	require.True(t, ok)
	fromDP, ok := FromDryBulbDewPointPressure(20, fromRH.DewPoint(), 101325)
	require.True(t, ok)

	assert.InDelta(t, fromRH.HumidityRatio(), fromDP.HumidityRatio(), 1e-7)
	assert.InDelta(t, fromRH.Enthalpy(), fromDP.Enthalpy(), 1e-4)
	assert.InDelta(t, fromRH.WetBulb(), fromDP.WetBulb(), 1e-3)
	assert.InDelta(t, fromRH.RelativeHumidity(), fromDP.RelativeHumidity(), 1e-3)
}

func TestAirState_BelowFreezing(t *testing.T) {
	s, ok := FromDryBulbRelativeHumidityPressure(-5, 80, 90000)
	require.True(t, ok)
	assert.InDelta(t, 401.7641224788012, s.SaturationPressure(), 1e-6)
	assert.InDelta(t, 0.002229073323045799, s.HumidityRatio(), 1e-12)
	assert.InDelta(t, -7.585268227285394, s.DewPoint(), 1e-6)
	assert.InDelta(t, -5.952911206635767, s.WetBulb(), 1e-6)
}

func TestAirState_DomainChecks(t *testing.T) {
	tests := []struct {
		name string
		ok   func() bool
	}{
		{"dry bulb too cold", func() bool { _, ok := FromDryBulbRelativeHumidityPressure(-101, 50, 101325); return ok }},
		{"dry bulb too hot", func() bool { _, ok := FromDryBulbRelativeHumidityPressure(201, 50, 101325); return ok }},
		{"negative humidity", func() bool { _, ok := FromDryBulbRelativeHumidityPressure(20, -1, 101325); return ok }},
		{"humidity over 100", func() bool { _, ok := FromDryBulbRelativeHumidityPressure(20, 100.5, 101325); return ok }},
		{"dew point out of range", func() bool { _, ok := FromDryBulbDewPointPressure(20, 250, 101325); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.ok())
		})
	}
}

func TestSolvers_NonConvergence(t *testing.T) {
	_, ok := WetBulbTemperature(20, 101325, 0.0072, 1e-30, 1)
	assert.False(t, ok)
	_, ok = DewPointTemperature(20, 1000, 1e-30, 1)
	assert.False(t, ok)
}
