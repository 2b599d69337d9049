package epw

import (
	"fmt"
	"strings"
)

// fieldInfo is one row of a field table: display name and unit.
type fieldInfo struct {
	name string
	unit string
}

// fieldTable indexes a list of fields by position and by name. Names match
// case-insensitively, with or without spaces.
type fieldTable struct {
	kind   string
	infos  []fieldInfo
	byName map[string]int
}

func newFieldTable(kind string, infos []fieldInfo) fieldTable {
	t := fieldTable{kind: kind, infos: infos, byName: make(map[string]int, 2*len(infos))}
	for i, info := range infos {
		t.byName[normalizeFieldName(info.name)] = i
	}
	return t
}

func normalizeFieldName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

func (t fieldTable) lookup(name string) (int, error) {
	i, ok := t.byName[normalizeFieldName(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownField, t.kind, name)
	}
	return i, nil
}

func (t fieldTable) name(i int) string {
	if i < 0 || i >= len(t.infos) {
		return fmt.Sprintf("%s(%d)", t.kind, i)
	}
	return t.infos[i].name
}

func (t fieldTable) unit(i int) string {
	if i < 0 || i >= len(t.infos) {
		return ""
	}
	return t.infos[i].unit
}

func (t fieldTable) names() []string {
	out := make([]string, len(t.infos))
	for i, info := range t.infos {
		out[i] = info.name
	}
	return out
}

// DataField identifies one of the 35 positional fields of an EPW data line.
type DataField int

const (
	Year DataField = iota
	Month
	Day
	Hour
	Minute
	DataSourceAndUncertaintyFlags
	DryBulbTemperature
	DewPointTemperature
	RelativeHumidity
	AtmosphericStationPressure
	ExtraterrestrialHorizontalRadiation
	ExtraterrestrialDirectNormalRadiation
	HorizontalInfraredRadiationIntensity
	GlobalHorizontalRadiation
	DirectNormalRadiation
	DiffuseHorizontalRadiation
	GlobalHorizontalIlluminance
	DirectNormalIlluminance
	DiffuseHorizontalIlluminance
	ZenithLuminance
	WindDirection
	WindSpeed
	TotalSkyCover
	OpaqueSkyCover
	Visibility
	CeilingHeight
	PresentWeatherObservation
	PresentWeatherCodes
	PrecipitableWater
	AerosolOpticalDepth
	SnowDepth
	DaysSinceLastSnowfall
	Albedo
	LiquidPrecipitationDepth
	LiquidPrecipitationQuantity

	numDataFields
)

var dataFields = newFieldTable("data field", []fieldInfo{
	{"Year", ""},
	{"Month", ""},
	{"Day", ""},
	{"Hour", ""},
	{"Minute", ""},
	{"Data Source and Uncertainty Flags", ""},
	{"Dry Bulb Temperature", "C"},
	{"Dew Point Temperature", "C"},
	{"Relative Humidity", ""},
	{"Atmospheric Station Pressure", "Pa"},
	{"Extraterrestrial Horizontal Radiation", "Wh/m2"},
	{"Extraterrestrial Direct Normal Radiation", "Wh/m2"},
	{"Horizontal Infrared Radiation Intensity", "Wh/m2"},
	{"Global Horizontal Radiation", "Wh/m2"},
	{"Direct Normal Radiation", "Wh/m2"},
	{"Diffuse Horizontal Radiation", "Wh/m2"},
	{"Global Horizontal Illuminance", "lux"},
	{"Direct Normal Illuminance", "lux"},
	{"Diffuse Horizontal Illuminance", "lux"},
	{"Zenith Luminance", "Cd/m2"},
	{"Wind Direction", "degrees"},
	{"Wind Speed", "m/s"},
	{"Total Sky Cover", ""},
	{"Opaque Sky Cover", ""},
	{"Visibility", "km"},
	{"Ceiling Height", "m"},
	{"Present Weather Observation", ""},
	{"Present Weather Codes", ""},
	{"Precipitable Water", "mm"},
	{"Aerosol Optical Depth", "thousandths"},
	{"Snow Depth", "cm"},
	{"Days Since Last Snowfall", ""},
	{"Albedo", ""},
	{"Liquid Precipitation Depth", "mm"},
	{"Liquid Precipitation Quantity", "hr"},
})

// ParseDataField resolves a display name such as "Dry Bulb Temperature".
func ParseDataField(name string) (DataField, error) {
	i, err := dataFields.lookup(name)
	return DataField(i), err
}

func (f DataField) String() string { return dataFields.name(int(f)) }
func (f DataField) Units() string  { return dataFields.unit(int(f)) }

// DataFieldNames lists the data fields in file order.
func DataFieldNames() []string { return dataFields.names() }

// ComputedField identifies a quantity derived from a data point's air state.
type ComputedField int

const (
	SaturationPressure ComputedField = iota
	Enthalpy
	HumidityRatio
	WetBulbTemperature
	Density
	SpecificVolume
)

var computedFields = newFieldTable("computed field", []fieldInfo{
	{"Saturation Pressure", "Pa"},
	{"Enthalpy", "kJ/kg"},
	{"Humidity Ratio", ""},
	{"Wet Bulb Temperature", "C"},
	{"Density", ""},
	{"Specific Volume", ""},
})

func ParseComputedField(name string) (ComputedField, error) {
	i, err := computedFields.lookup(name)
	return ComputedField(i), err
}

func (f ComputedField) String() string { return computedFields.name(int(f)) }
func (f ComputedField) Units() string  { return computedFields.unit(int(f)) }

func ComputedFieldNames() []string { return computedFields.names() }

// DesignField identifies one token of a design condition block. The title,
// blank and the three section labels are fields too, so indices line up with
// token positions.
type DesignField int

const (
	TitleOfDesignCondition DesignField = iota
	DesignBlank
	DesignHeating
	HeatingColdestMonth
	HeatingDryBulb99pt6
	HeatingDryBulb99
	HeatingHumidificationDewPoint99pt6
	HeatingHumidificationHumidityRatio99pt6
	HeatingHumidificationMeanCoincidentDryBulb99pt6
	HeatingHumidificationDewPoint99
	HeatingHumidificationHumidityRatio99
	HeatingHumidificationMeanCoincidentDryBulb99
	HeatingColdestMonthWindSpeed0pt4
	HeatingColdestMonthMeanCoincidentDryBulb0pt4
	HeatingColdestMonthWindSpeed1
	HeatingColdestMonthMeanCoincidentDryBulb1
	HeatingMeanCoincidentWindSpeed99pt6
	HeatingPrevailingCoincidentWindDirection99pt6
	DesignCooling
	CoolingHottestMonth
	CoolingDryBulbRange
	CoolingDryBulb0pt4
	CoolingMeanCoincidentWetBulb0pt4
	CoolingDryBulb1
	CoolingMeanCoincidentWetBulb1
	CoolingDryBulb2
	CoolingMeanCoincidentWetBulb2
	CoolingEvaporationWetBulb0pt4
	CoolingEvaporationMeanCoincidentDryBulb0pt4
	CoolingEvaporationWetBulb1
	CoolingEvaporationMeanCoincidentDryBulb1
	CoolingEvaporationWetBulb2
	CoolingEvaporationMeanCoincidentDryBulb2
	CoolingMeanCoincidentWindSpeed0pt4
	CoolingPrevailingCoincidentWindDirection0pt4
	CoolingDehumidificationDewPoint0pt4
	CoolingDehumidificationHumidityRatio0pt4
	CoolingDehumidificationMeanCoincidentDryBulb0pt4
	CoolingDehumidificationDewPoint1
	CoolingDehumidificationHumidityRatio1
	CoolingDehumidificationMeanCoincidentDryBulb1
	CoolingDehumidificationDewPoint2
	CoolingDehumidificationHumidityRatio2
	CoolingDehumidificationMeanCoincidentDryBulb2
	CoolingEnthalpy0pt4
	CoolingEnthalpyMeanCoincidentDryBulb0pt4
	CoolingEnthalpy1
	CoolingEnthalpyMeanCoincidentDryBulb1
	CoolingEnthalpy2
	CoolingEnthalpyMeanCoincidentDryBulb2
	CoolingHours8To4AndDryBulb12pt8To20pt6
	DesignExtremes
	ExtremeWindSpeed1
	ExtremeWindSpeed2pt5
	ExtremeWindSpeed5
	ExtremeMaxWetBulb
	ExtremeMeanMinDryBulb
	ExtremeMeanMaxDryBulb
	ExtremeStdDevMinDryBulb
	ExtremeStdDevMaxDryBulb
	ExtremeN5YearsMinDryBulb
	ExtremeN5YearsMaxDryBulb
	ExtremeN10YearsMinDryBulb
	ExtremeN10YearsMaxDryBulb
	ExtremeN20YearsMinDryBulb
	ExtremeN20YearsMaxDryBulb
	ExtremeN50YearsMinDryBulb
	ExtremeN50YearsMaxDryBulb

	numDesignFields
)

var designFields = newFieldTable("design field", []fieldInfo{
	{"Title of Design Condition", ""},
	{"Blank", ""},
	{"Heating", ""},
	{"Heating Coldest Month", ""},
	{"Heating Dry Bulb Temperature 99.6%", "C"},
	{"Heating Dry Bulb Temperature 99%", "C"},
	{"Heating Humidification Dew Point Temperature 99.6%", "C"},
	{"Heating Humidification Humidity Ratio 99.6%", "g/kg"},
	{"Heating Humidification Mean Coincident Dry Bulb Temperature 99.6%", "C"},
	{"Heating Humidification Dew Point Temperature 99%", "C"},
	{"Heating Humidification Humidity Ratio 99%", "g/kg"},
	{"Heating Humidification Mean Coincident Dry Bulb 99%", "C"},
	{"Heating Coldest Month Wind Speed 0.4%", "m/s"},
	{"Heating Coldest Month Mean Coincident Dry Bulb 0.4%", "C"},
	{"Heating Coldest Month Wind Speed 1%", "m/s"},
	{"Heating Coldest Month Mean Coincident Dry Bulb 1%", "C"},
	{"Heating Mean Coincident Wind Speed", "m/s"},
	{"Heating Prevailing Coincident Wind Direction 99.6%", "degrees"},
	{"Cooling", ""},
	{"Cooling Hottest Month", ""},
	{"Cooling Dry Bulb Range", "C"},
	{"Cooling Dry Bulb 0.4%", "C"},
	{"Cooling Mean Coincident Wet Bulb 0.4%", "C"},
	{"Cooling Dry Bulb 1%", "C"},
	{"Cooling Mean Coincident Wet Bulb 1%", "C"},
	{"Cooling Dry Bulb 2%", "C"},
	{"Cooling Mean Coincident Wet Bulb 2%", "C"},
	{"Cooling Evaporation Wet Bulb 0.4%", "C"},
	{"Cooling Evaporation Mean Coincident Dry Bulb 0.4%", "C"},
	{"Cooling Evaporation Wet Bulb 1%", "C"},
	{"Cooling Evaporation Mean Coincident Dry Bulb 1%", "C"},
	{"Cooling Evaporation Wet Bulb 2%", "C"},
	{"Cooling Evaporation Mean Coincident Dry Bulb 2%", "C"},
	{"Cooling Mean Coincident Wind Speed 0.4%", "m/s"},
	{"Cooling Prevailing Coincident Wind Direction 0.4%", "degrees"},
	{"Cooling Dehumidification Dew Point 0.4%", "C"},
	{"Cooling Dehumidification Humidity Ratio 0.4%", "g/kg"},
	{"Cooling Dehumidification Mean Coincident Dry Bulb 0.4%", "C"},
	{"Cooling Dehumidification Dew Point 1%", "C"},
	{"Cooling Dehumidification Humidity Ratio 1%", "g/kg"},
	{"Cooling Dehumidification Mean Coincident Dry Bulb 1%", "C"},
	{"Cooling Dehumidification Dew Point 2%", "C"},
	{"Cooling Dehumidification Humidity Ratio 2%", "g/kg"},
	{"Cooling Dehumidification Mean Coincident Dry Bulb 2%", "C"},
	{"Cooling Enthalpy 0.4%", "kJ/kg"},
	{"Cooling Enthalpy Mean Coincident Dry Bulb 0.4%", "C"},
	{"Cooling Enthalpy 1%", "kJ/kg"},
	{"Cooling Enthalpy Mean Coincident Dry Bulb 1%", "C"},
	{"Cooling Enthalpy 2%", "kJ/kg"},
	{"Cooling Enthalpy Mean Coincident Dry Bulb 2%", "C"},
	{"Cooling Hours 8 to 4 and Dry Bulb 12.8% to 20.6%", "hr"},
	{"Extremes", ""},
	{"Extreme Wind Speed 1%", "m/s"},
	{"Extreme Wind Speed 2.5%", "m/s"},
	{"Extreme Wind Speed 5%", "m/s"},
	{"Extreme Max Wet Bulb", "C"},
	{"Extreme Mean Min Dry Bulb", "C"},
	{"Extreme Mean Max Dry Bulb", "C"},
	{"Extreme Std Dev Min Dry Bulb", "C"},
	{"Extreme Std Dev Max Dry Bulb", "C"},
	{"Extreme N5 Years Min Dry Bulb", "C"},
	{"Extreme N5 Years Max Dry Bulb", "C"},
	{"Extreme N10 Years Min Dry Bulb", "C"},
	{"Extreme N10 Years Max Dry Bulb", "C"},
	{"Extreme N20 Years Min Dry Bulb", "C"},
	{"Extreme N20 Years Max Dry Bulb", "C"},
	{"Extreme N50 Years Min Dry Bulb", "C"},
	{"Extreme N50 Years Max Dry Bulb", "C"},
})

func ParseDesignField(name string) (DesignField, error) {
	i, err := designFields.lookup(name)
	return DesignField(i), err
}

func (f DesignField) String() string { return designFields.name(int(f)) }
func (f DesignField) Units() string  { return designFields.unit(int(f)) }

func DesignFieldNames() []string { return designFields.names() }

// isLabel reports whether f is one of the non-numeric tokens of the block.
func (f DesignField) isLabel() bool {
	switch f {
	case TitleOfDesignCondition, DesignBlank, DesignHeating, DesignCooling, DesignExtremes:
		return true
	}
	return false
}

func (f DesignField) isInt() bool {
	switch f {
	case HeatingColdestMonth, HeatingPrevailingCoincidentWindDirection99pt6, CoolingHottestMonth,
		CoolingPrevailingCoincidentWindDirection0pt4, CoolingHours8To4AndDryBulb12pt8To20pt6:
		return true
	}
	return false
}

// DepthField identifies one of the 16 values of a ground temperature depth block.
type DepthField int

const (
	GroundTemperatureDepthField DepthField = iota
	SoilConductivity
	SoilDensity
	SoilSpecificHeat
	JanGroundTemperature
	FebGroundTemperature
	MarGroundTemperature
	AprGroundTemperature
	MayGroundTemperature
	JunGroundTemperature
	JulGroundTemperature
	AugGroundTemperature
	SepGroundTemperature
	OctGroundTemperature
	NovGroundTemperature
	DecGroundTemperature

	numDepthFields
)

var depthFields = newFieldTable("depth field", []fieldInfo{
	{"Ground Temperature Depth", ""},
	{"Soil Conductivity", ""},
	{"Soil Density", ""},
	{"Soil Specific Heat", ""},
	{"January Ground Temperature", ""},
	{"February Ground Temperature", ""},
	{"March Ground Temperature", ""},
	{"April Ground Temperature", ""},
	{"May Ground Temperature", ""},
	{"June Ground Temperature", ""},
	{"July Ground Temperature", ""},
	{"August Ground Temperature", ""},
	{"September Ground Temperature", ""},
	{"October Ground Temperature", ""},
	{"November Ground Temperature", ""},
	{"December Ground Temperature", ""},
})

func ParseDepthField(name string) (DepthField, error) {
	i, err := depthFields.lookup(name)
	return DepthField(i), err
}

func (f DepthField) String() string { return depthFields.name(int(f)) }
func (f DepthField) Units() string  { return depthFields.unit(int(f)) }

func DepthFieldNames() []string { return depthFields.names() }
