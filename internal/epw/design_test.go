package epw

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const denverDesign = "Climate Design Data 2009 ASHRAE Handbook,,Heating,12,-18.8,-15.5,-21.6,0.7,-10.9,-18.8,0.9,-7.5,12.2,3.9,10.9,3.8,3,340," +
	"Cooling,7,15.2,33,15.7,32,15.5,30.2,15.3,18.4,27.3,17.5,26.4,16.8,25.6,4.9,0,16.1,14.3,20.2,14.9,13.2,19.9,13.9,12.3,19.6,59.7,27.3,56.6,26.6,54,25.7,760," +
	"Extremes,11.1,9.5,8.4,22.9,-22.9,36.1,3.8,1.2,-25.7,37,-27.9,37.7,-30.1,38.3,-32.8,39.2"

func TestFromDesignConditionsString(t *testing.T) {
	dc, ok := FromDesignConditionsString(denverDesign)
	require.True(t, ok)
	assert.Equal(t, "Climate Design Data 2009 ASHRAE Handbook", dc.TitleOfDesignCondition())

	tests := []struct {
		field DesignField
		want  float64
	}{
		{HeatingColdestMonth, 12},
		{HeatingDryBulb99pt6, -18.8},
		{HeatingDryBulb99, -15.5},
		{HeatingPrevailingCoincidentWindDirection99pt6, 340},
		{CoolingHottestMonth, 7},
		{CoolingDryBulb0pt4, 33},
		{CoolingPrevailingCoincidentWindDirection0pt4, 0},
		{CoolingEnthalpy2, 54},
		{CoolingHours8To4AndDryBulb12pt8To20pt6, 760},
		{ExtremeWindSpeed1, 11.1},
		{ExtremeN50YearsMaxDryBulb, 39.2},
	}
	for _, tt := range tests {
		got, ok := dc.GetField(tt.field)
		require.True(t, ok, tt.field.String())
		assert.Equal(t, tt.want, got, tt.field.String())
	}

	v, ok, err := dc.GetFieldByName("Heating Dry Bulb Temperature 99.6%")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -18.8, v)

	units, err := dc.GetUnitsByName("Heating Dry Bulb Temperature 99.6%")
	require.NoError(t, err)
	assert.Equal(t, "C", units)

	_, ok = dc.GetField(DesignHeating)
	assert.False(t, ok, "section labels carry no value")
	assert.Len(t, dc.Fields(), 63)
}

func TestFromDesignConditionsStrings_Incomplete(t *testing.T) {
	tokens := strings.Split(denverDesign, ",")

	_, ok := FromDesignConditionsStrings(tokens[:40])
	assert.False(t, ok)

	// blank statistics are unset rather than zero
	for i := int(CoolingEnthalpy0pt4); i <= int(CoolingEnthalpyMeanCoincidentDryBulb2); i++ {
		tokens[i] = ""
	}
	dc, ok := FromDesignConditionsStrings(tokens)
	require.True(t, ok)
	_, ok = dc.GetField(CoolingEnthalpy0pt4)
	assert.False(t, ok)
	_, ok = dc.GetField(CoolingEnthalpyMeanCoincidentDryBulb2)
	assert.False(t, ok)
	v, ok := dc.GetField(CoolingHours8To4AndDryBulb12pt8To20pt6)
	require.True(t, ok)
	assert.Equal(t, 760.0, v)
}

func TestDesignCondition_SetField(t *testing.T) {
	var dc DesignCondition
	assert.True(t, dc.SetField(CoolingHottestMonth, 7.9))
	v, ok := dc.GetField(CoolingHottestMonth)
	require.True(t, ok)
	assert.Equal(t, 7.0, v, "integer fields truncate")

	assert.False(t, dc.SetField(DesignCooling, 1))
	assert.False(t, dc.SetField(DesignField(200), 1))
}

func TestFromGroundTemperatureDepthsStrings(t *testing.T) {
	g, ok := FromGroundTemperatureDepthsStrings(strings.Split(".5,,,,-0.60,1.34,5.12,8.69,15.46,19.02,20.00,18.20,14.02,8.83,3.71,0.32", ","))
	require.True(t, ok)
	assert.Equal(t, 0.5, g.Depth())

	conductivity, ok := g.GetField(SoilConductivity)
	require.True(t, ok)
	assert.Equal(t, -9999.0, conductivity)

	jan, ok, err := g.GetFieldByName("January Ground Temperature")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -0.6, jan)

	assert.Equal(t, []float64{-0.6, 1.34, 5.12, 8.69, 15.46, 19.02, 20, 18.2, 14.02, 8.83, 3.71, 0.32}, g.MonthlyTemperatures())

	_, ok = FromGroundTemperatureDepthsStrings([]string{"1", "2"})
	assert.False(t, ok)

	_, _, err = g.GetFieldByName("Soil Moisture")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSortDepths(t *testing.T) {
	depths := make([]GroundTemperatureDepth, 3)
	for i, d := range []float64{4, 0.5, 2} {
		depths[i] = NewGroundTemperatureDepth()
		depths[i].SetField(GroundTemperatureDepthField, d)
	}
	sortDepths(depths)
	assert.Equal(t, []float64{0.5, 2, 4}, []float64{depths[0].Depth(), depths[1].Depth(), depths[2].Depth()})
}
