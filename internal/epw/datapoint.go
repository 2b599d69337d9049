package epw

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"epw-platform/internal/calendar"
	"epw-platform/internal/psychro"
)

// numFields is the number of comma separated tokens in an EPW data line.
const numFields = int(numDataFields)

// skyCoverMissing marks an absent or rejected sky cover value.
const skyCoverMissing = 99

// rule describes how a measurement token is validated. Values that reject
// revert the field to its sentinel; values that warn are kept.
type rule struct {
	sentinel string
	reject   func(v float64) bool
	warn     func(v float64) bool
	// normalize re-stores string input in fixed six-decimal form.
	normalize bool
}

func outside(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return v <= lo || v >= hi }
}

func negative(v float64) bool { return v < 0 }

func equals(x float64) func(float64) bool {
	return func(v float64) bool { return v == x }
}

func negativeOr(x float64) func(float64) bool {
	return func(v float64) bool { return v < 0 || v == x }
}

var rules = map[DataField]rule{
	DryBulbTemperature:                    {sentinel: "99.9", warn: outside(-70, 70)},
	DewPointTemperature:                   {sentinel: "99.9", warn: outside(-70, 70)},
	RelativeHumidity:                      {sentinel: "999", reject: negative, warn: func(v float64) bool { return v > 110 }},
	AtmosphericStationPressure:            {sentinel: "999999", warn: outside(31000, 120000)},
	ExtraterrestrialHorizontalRadiation:   {sentinel: "9999", reject: negativeOr(9999)},
	ExtraterrestrialDirectNormalRadiation: {sentinel: "9999", reject: negativeOr(9999)},
	HorizontalInfraredRadiationIntensity:  {sentinel: "9999", reject: negativeOr(9999)},
	GlobalHorizontalRadiation:             {sentinel: "9999", reject: negativeOr(9999), normalize: true},
	DirectNormalRadiation:                 {sentinel: "9999", reject: negativeOr(9999)},
	DiffuseHorizontalRadiation:            {sentinel: "9999", reject: negativeOr(9999)},
	GlobalHorizontalIlluminance:           {sentinel: "999999", reject: func(v float64) bool { return v < 0 || v > 999900 }},
	DirectNormalIlluminance:               {sentinel: "999999", reject: func(v float64) bool { return v < 0 || v > 999900 }},
	DiffuseHorizontalIlluminance:          {sentinel: "999999", reject: func(v float64) bool { return v < 0 || v > 999900 }},
	ZenithLuminance:                       {sentinel: "9999", reject: func(v float64) bool { return v < 0 || v >= 9999 }},
	WindDirection:                         {sentinel: "999", reject: func(v float64) bool { return v < 0 || v > 360 }},
	WindSpeed:                             {sentinel: "999", reject: negative, warn: func(v float64) bool { return v > 40 }, normalize: true},
	Visibility:                            {sentinel: "9999", reject: equals(9999)},
	CeilingHeight:                         {sentinel: "99999", reject: equals(99999)},
	PrecipitableWater:                     {sentinel: "999", reject: equals(999)},
	AerosolOpticalDepth:                   {sentinel: ".999", reject: equals(0.999)},
	SnowDepth:                             {sentinel: "999", reject: equals(999)},
	DaysSinceLastSnowfall:                 {sentinel: "99", reject: equals(99)},
	Albedo:                                {sentinel: "999", reject: equals(999)},
	LiquidPrecipitationDepth:              {sentinel: "999", reject: equals(999)},
	LiquidPrecipitationQuantity:           {sentinel: "99", reject: equals(99)},
}

type measurement struct {
	raw     string
	value   float64
	present bool
}

// DataPoint is one record of the EPW data body. Measurements keep the token
// they were read from so the record can be written back unchanged.
type DataPoint struct {
	year, month, day, hour, minute int
	flags                          string
	totalSkyCover                  int
	opaqueSkyCover                 int
	presentWeatherObservation      int
	presentWeatherCodes            int
	m                              [numDataFields]measurement

	// logger is set only while a record is being built.
	logger *zap.Logger
}

// NewEmptyDataPoint returns a record dated 1/1/1 hour 1 with every
// measurement missing.
func NewEmptyDataPoint() DataPoint {
	p := DataPoint{year: 1, month: 1, day: 1, hour: 1, totalSkyCover: skyCoverMissing, opaqueSkyCover: skyCoverMissing}
	for f, r := range rules {
		p.m[f] = measurement{raw: r.sentinel}
	}
	return p
}

// NewDataPoint builds a record from numeric values. Fields absent from
// values stay missing. Sky cover and present weather fields are truncated
// to integers.
func NewDataPoint(year, month, day, hour, minute int, flags string, values map[DataField]float64) (DataPoint, error) {
	p := NewEmptyDataPoint()
	p.setYear(year)
	if !p.setMonth(month) || !p.setDay(day) || !p.setHour(hour) || !p.setMinute(minute) {
		return DataPoint{}, fmt.Errorf("invalid timestamp %d/%d/%d %d:%02d", month, day, year, hour, minute)
	}
	p.flags = flags
	for f, v := range values {
		if _, err := p.setField(f, v); err != nil {
			return DataPoint{}, err
		}
	}
	return p, nil
}

// FromEpwString parses one data line.
func FromEpwString(line string) (DataPoint, bool) {
	return FromEpwStrings(strings.Split(line, ","), false)
}

// FromEpwStrings parses the tokens of one data line. In pedantic mode the
// line must have exactly 35 tokens; otherwise missing trailing fields stay
// missing and extra tokens are ignored.
func FromEpwStrings(list []string, pedantic bool) (DataPoint, bool) {
	logger := zap.L()
	if !checkFieldCount(list, pedantic, logger) || len(list) <= int(Minute) {
		return DataPoint{}, false
	}
	p := NewEmptyDataPoint()
	p.logger = logger
	if !p.setYearString(list[Year]) || !p.setMonthString(list[Month]) || !p.setDayString(list[Day]) ||
		!p.setHourString(list[Hour]) || !p.setMinuteString(list[Minute]) {
		return DataPoint{}, false
	}
	p.setTail(list)
	p.logger = nil
	return p, true
}

// FromEpwStringsAt parses a data line but takes the timestamp from the
// arguments instead of the first five tokens.
func FromEpwStringsAt(year, month, day, hour, minute int, list []string, pedantic bool) (DataPoint, bool) {
	return fromEpwStringsAt(zap.L(), year, month, day, hour, minute, list, pedantic)
}

// fromEpwStringsAt reports field diagnostics to logger.
func fromEpwStringsAt(logger *zap.Logger, year, month, day, hour, minute int, list []string, pedantic bool) (DataPoint, bool) {
	if !checkFieldCount(list, pedantic, logger) {
		return DataPoint{}, false
	}
	p := NewEmptyDataPoint()
	p.logger = logger
	p.setYear(year)
	if !p.setMonth(month) || !p.setDay(day) || !p.setHour(hour) || !p.setMinute(minute) {
		return DataPoint{}, false
	}
	p.setTail(list)
	p.logger = nil
	return p, true
}

func checkFieldCount(list []string, pedantic bool, logger *zap.Logger) bool {
	switch {
	case len(list) != numFields && pedantic:
		logger.Error("[EPW_DATA_FIELDS] Unexpected number of fields in EPW data",
			zap.Int("expected", numFields), zap.Int("received", len(list)))
		return false
	case len(list) < numFields:
		logger.Warn("[EPW_DATA_FIELDS] Missing fields in EPW data, the remaining fields will not be available",
			zap.Int("expected", numFields), zap.Int("received", len(list)))
	case len(list) > numFields:
		logger.Warn("[EPW_DATA_FIELDS] Extra fields in EPW data will be ignored",
			zap.Int("expected", numFields), zap.Int("received", len(list)))
	}
	return true
}

// setTail applies every token after the timestamp. Rejected values are
// already logged or reverted by the setters.
func (p *DataPoint) setTail(list []string) {
	for i := int(DataSourceAndUncertaintyFlags); i < numFields && i < len(list); i++ {
		p.setFieldString(DataField(i), list[i])
	}
}

// ToEpwStrings returns the 35 tokens of the record in file order.
func (p DataPoint) ToEpwStrings() []string {
	out := make([]string, numFields)
	out[Year] = strconv.Itoa(p.year)
	out[Month] = strconv.Itoa(p.month)
	out[Day] = strconv.Itoa(p.day)
	out[Hour] = strconv.Itoa(p.hour)
	out[Minute] = strconv.Itoa(p.minute)
	out[DataSourceAndUncertaintyFlags] = p.flags
	for i := DryBulbTemperature; i < numDataFields; i++ {
		switch i {
		case TotalSkyCover:
			out[i] = strconv.Itoa(p.totalSkyCover)
		case OpaqueSkyCover:
			out[i] = strconv.Itoa(p.opaqueSkyCover)
		case PresentWeatherObservation:
			out[i] = strconv.Itoa(p.presentWeatherObservation)
		case PresentWeatherCodes:
			out[i] = strconv.Itoa(p.presentWeatherCodes)
		default:
			out[i] = p.m[i].raw
		}
	}
	return out
}

func (p DataPoint) Year() int                             { return p.year }
func (p DataPoint) Month() int                            { return p.month }
func (p DataPoint) Day() int                              { return p.day }
func (p DataPoint) Hour() int                             { return p.hour }
func (p DataPoint) Minute() int                           { return p.minute }
func (p DataPoint) DataSourceAndUncertaintyFlags() string { return p.flags }
func (p DataPoint) TotalSkyCover() int                    { return p.totalSkyCover }
func (p DataPoint) OpaqueSkyCover() int                   { return p.opaqueSkyCover }
func (p DataPoint) PresentWeatherObservation() int        { return p.presentWeatherObservation }
func (p DataPoint) PresentWeatherCodes() int              { return p.presentWeatherCodes }

func (p DataPoint) DryBulbTemperature() (float64, bool)  { return p.measured(DryBulbTemperature) }
func (p DataPoint) DewPointTemperature() (float64, bool) { return p.measured(DewPointTemperature) }
func (p DataPoint) RelativeHumidity() (float64, bool)    { return p.measured(RelativeHumidity) }
func (p DataPoint) AtmosphericStationPressure() (float64, bool) {
	return p.measured(AtmosphericStationPressure)
}
func (p DataPoint) ExtraterrestrialHorizontalRadiation() (float64, bool) {
	return p.measured(ExtraterrestrialHorizontalRadiation)
}
func (p DataPoint) ExtraterrestrialDirectNormalRadiation() (float64, bool) {
	return p.measured(ExtraterrestrialDirectNormalRadiation)
}
func (p DataPoint) HorizontalInfraredRadiationIntensity() (float64, bool) {
	return p.measured(HorizontalInfraredRadiationIntensity)
}
func (p DataPoint) GlobalHorizontalRadiation() (float64, bool) {
	return p.measured(GlobalHorizontalRadiation)
}
func (p DataPoint) DirectNormalRadiation() (float64, bool) { return p.measured(DirectNormalRadiation) }
func (p DataPoint) DiffuseHorizontalRadiation() (float64, bool) {
	return p.measured(DiffuseHorizontalRadiation)
}
func (p DataPoint) GlobalHorizontalIlluminance() (float64, bool) {
	return p.measured(GlobalHorizontalIlluminance)
}
func (p DataPoint) DirectNormalIlluminance() (float64, bool) {
	return p.measured(DirectNormalIlluminance)
}
func (p DataPoint) DiffuseHorizontalIlluminance() (float64, bool) {
	return p.measured(DiffuseHorizontalIlluminance)
}
func (p DataPoint) ZenithLuminance() (float64, bool)       { return p.measured(ZenithLuminance) }
func (p DataPoint) WindDirection() (float64, bool)         { return p.measured(WindDirection) }
func (p DataPoint) WindSpeed() (float64, bool)             { return p.measured(WindSpeed) }
func (p DataPoint) Visibility() (float64, bool)            { return p.measured(Visibility) }
func (p DataPoint) CeilingHeight() (float64, bool)         { return p.measured(CeilingHeight) }
func (p DataPoint) PrecipitableWater() (float64, bool)     { return p.measured(PrecipitableWater) }
func (p DataPoint) AerosolOpticalDepth() (float64, bool)   { return p.measured(AerosolOpticalDepth) }
func (p DataPoint) SnowDepth() (float64, bool)             { return p.measured(SnowDepth) }
func (p DataPoint) DaysSinceLastSnowfall() (float64, bool) { return p.measured(DaysSinceLastSnowfall) }
func (p DataPoint) Albedo() (float64, bool)                { return p.measured(Albedo) }
func (p DataPoint) LiquidPrecipitationDepth() (float64, bool) {
	return p.measured(LiquidPrecipitationDepth)
}
func (p DataPoint) LiquidPrecipitationQuantity() (float64, bool) {
	return p.measured(LiquidPrecipitationQuantity)
}

func (p DataPoint) measured(f DataField) (float64, bool) {
	m := p.m[f]
	return m.value, m.present
}

// Date is the calendar date of the record with its year as the base year.
func (p DataPoint) Date() (calendar.Date, error) {
	return calendar.NewDateWithYear(calendar.MonthOfYear(p.month), p.day, p.year)
}

// Time is the hour and minute of the record as a time of day; hour 24 is
// 24:00:00.
func (p DataPoint) Time() calendar.Time {
	return calendar.NewTime(0, p.hour, p.minute, 0)
}

// DateTime folds hour 24 into midnight of the following day.
func (p DataPoint) DateTime() (calendar.DateTime, error) {
	d, err := p.Date()
	if err != nil {
		return calendar.DateTime{}, err
	}
	return calendar.NewDateTime(d, p.Time()), nil
}

// setYear accepts any year.
func (p *DataPoint) setYear(year int) { p.year = year }

func (p *DataPoint) setYearString(s string) bool {
	v, ok := parseIntPrefix(s)
	if !ok {
		return false
	}
	p.year = v
	return true
}

func (p *DataPoint) setMonth(month int) bool {
	return p.setRanged(&p.month, "Month", month, 1, 12)
}

func (p *DataPoint) setMonthString(s string) bool {
	return p.setRangedString(&p.month, "Month", s, 1, 12)
}

func (p *DataPoint) setDay(day int) bool {
	return p.setRanged(&p.day, "Day", day, 1, 31)
}

func (p *DataPoint) setDayString(s string) bool {
	return p.setRangedString(&p.day, "Day", s, 1, 31)
}

func (p *DataPoint) setHour(hour int) bool {
	return p.setRanged(&p.hour, "Hour", hour, 1, 24)
}

func (p *DataPoint) setHourString(s string) bool {
	return p.setRangedString(&p.hour, "Hour", s, 1, 24)
}

func (p *DataPoint) setMinute(minute int) bool {
	return p.setRanged(&p.minute, "Minute", minute, 0, 59)
}

func (p *DataPoint) setMinuteString(s string) bool {
	return p.setRangedString(&p.minute, "Minute", s, 0, 59)
}

func (p *DataPoint) setRanged(dst *int, name string, v, lo, hi int) bool {
	if v < lo || v > hi {
		p.log().Error("[EPW_DATA_RANGE] Value out of range", zap.String("field", name), zap.Int("value", v))
		return false
	}
	*dst = v
	return true
}

func (p *DataPoint) setRangedString(dst *int, name, s string, lo, hi int) bool {
	v, ok := parseIntPrefix(s)
	if !ok {
		p.log().Error("[EPW_DATA_RANGE] Value cannot be converted into an integer",
			zap.String("field", name), zap.String("value", s))
		return false
	}
	return p.setRanged(dst, name, v, lo, hi)
}

// setFieldString sets a field from its file token. It reports false when the
// token does not parse or is out of domain; the field is then missing.
func (p *DataPoint) setFieldString(f DataField, s string) bool {
	switch f {
	case Year:
		return p.setYearString(s)
	case Month:
		return p.setMonthString(s)
	case Day:
		return p.setDayString(s)
	case Hour:
		return p.setHourString(s)
	case Minute:
		return p.setMinuteString(s)
	case DataSourceAndUncertaintyFlags:
		p.flags = s
		return true
	case TotalSkyCover, OpaqueSkyCover:
		v, ok := parseIntPrefix(s)
		if !ok {
			p.setSkyCover(f, -1)
			return false
		}
		return p.setSkyCover(f, v)
	case PresentWeatherObservation, PresentWeatherCodes:
		v, ok := parseIntPrefix(s)
		if !ok {
			return false
		}
		p.setPresentWeather(f, v)
		return true
	}

	r, ok := rules[f]
	if !ok {
		return false
	}
	v, ok := parseFloatPrefix(s)
	if !ok || (r.reject != nil && r.reject(v)) {
		p.m[f] = measurement{raw: r.sentinel}
		return false
	}
	if r.warn != nil && r.warn(v) {
		p.warnLimits(f, v)
	}
	if r.normalize {
		s = formatFixed(v)
	}
	p.m[f] = measurement{raw: s, value: v, present: s != r.sentinel}
	return true
}

// setField sets a field from a number. Numbers are stored in six-decimal
// form. It errors only for fields that cannot hold a number.
func (p *DataPoint) setField(f DataField, v float64) (bool, error) {
	switch f {
	case Year:
		p.setYear(int(v))
		return true, nil
	case Month:
		return p.setMonth(int(v)), nil
	case Day:
		return p.setDay(int(v)), nil
	case Hour:
		return p.setHour(int(v)), nil
	case Minute:
		return p.setMinute(int(v)), nil
	case DataSourceAndUncertaintyFlags:
		return false, fmt.Errorf("%s is not numeric", f)
	case TotalSkyCover, OpaqueSkyCover:
		return p.setSkyCover(f, int(v)), nil
	case PresentWeatherObservation, PresentWeatherCodes:
		p.setPresentWeather(f, int(v))
		return true, nil
	}

	r, ok := rules[f]
	if !ok {
		return false, fmt.Errorf("%w: data field %d", ErrUnknownField, int(f))
	}
	if r.reject != nil && r.reject(v) {
		p.m[f] = measurement{raw: r.sentinel}
		return false, nil
	}
	if r.warn != nil && r.warn(v) {
		p.warnLimits(f, v)
	}
	raw := formatFixed(v)
	p.m[f] = measurement{raw: raw, value: v, present: raw != r.sentinel}
	return true, nil
}

func (p *DataPoint) setSkyCover(f DataField, v int) bool {
	dst := &p.totalSkyCover
	if f == OpaqueSkyCover {
		dst = &p.opaqueSkyCover
	}
	if v < 0 || v > 10 {
		*dst = skyCoverMissing
		return false
	}
	*dst = v
	return true
}

func (p *DataPoint) setPresentWeather(f DataField, v int) {
	if f == PresentWeatherObservation {
		p.presentWeatherObservation = v
		return
	}
	p.presentWeatherCodes = v
}

func (p *DataPoint) log() *zap.Logger {
	if p.logger != nil {
		return p.logger
	}
	return zap.L()
}

func (p *DataPoint) warnLimits(f DataField, v float64) {
	p.log().Warn("[EPW_DATA_LIMITS] Value not within the expected limits",
		zap.String("field", f.String()), zap.Float64("value", v))
}

// GetField returns any data field as a number. The flags field and missing
// values report false.
func (p DataPoint) GetField(f DataField) (float64, bool) {
	switch f {
	case Year:
		return float64(p.year), true
	case Month:
		return float64(p.month), true
	case Day:
		return float64(p.day), true
	case Hour:
		return float64(p.hour), true
	case Minute:
		return float64(p.minute), true
	case DataSourceAndUncertaintyFlags:
		return 0, false
	case TotalSkyCover:
		return skyCoverValue(p.totalSkyCover)
	case OpaqueSkyCover:
		return skyCoverValue(p.opaqueSkyCover)
	case PresentWeatherObservation:
		return float64(p.presentWeatherObservation), true
	case PresentWeatherCodes:
		return float64(p.presentWeatherCodes), true
	}
	if f < 0 || f >= numDataFields {
		return 0, false
	}
	return p.measured(f)
}

func skyCoverValue(v int) (float64, bool) {
	if v == skyCoverMissing {
		return 0, false
	}
	return float64(v), true
}

// GetFieldByName resolves name with ParseDataField first.
func (p DataPoint) GetFieldByName(name string) (float64, bool, error) {
	f, err := ParseDataField(name)
	if err != nil {
		return 0, false, err
	}
	v, ok := p.GetField(f)
	return v, ok, nil
}

// AirState needs dry bulb and pressure, and prefers relative humidity over
// dew point for the moisture content.
func (p DataPoint) AirState() (psychro.AirState, bool) {
	db, ok := p.DryBulbTemperature()
	if !ok {
		return psychro.AirState{}, false
	}
	pressure, ok := p.AtmosphericStationPressure()
	if !ok {
		return psychro.AirState{}, false
	}
	if rh, ok := p.RelativeHumidity(); ok {
		return psychro.FromDryBulbRelativeHumidityPressure(db, rh, pressure)
	}
	if dp, ok := p.DewPointTemperature(); ok {
		return psychro.FromDryBulbDewPointPressure(db, dp, pressure)
	}
	return psychro.AirState{}, false
}

// SaturationPressure only needs the dry bulb temperature.
func (p DataPoint) SaturationPressure() (float64, bool) {
	db, ok := p.DryBulbTemperature()
	if !ok || !psychro.InDomain(db) {
		return 0, false
	}
	return psychro.SaturationPressure(db), true
}

func (p DataPoint) Enthalpy() (float64, bool) {
	return p.fromAirState(psychro.AirState.Enthalpy)
}

func (p DataPoint) HumidityRatio() (float64, bool) {
	return p.fromAirState(psychro.AirState.HumidityRatio)
}

func (p DataPoint) Density() (float64, bool) {
	return p.fromAirState(psychro.AirState.Density)
}

func (p DataPoint) SpecificVolume() (float64, bool) {
	return p.fromAirState(psychro.AirState.SpecificVolume)
}

func (p DataPoint) WetBulb() (float64, bool) {
	return p.fromAirState(psychro.AirState.WetBulb)
}

func (p DataPoint) fromAirState(get func(psychro.AirState) float64) (float64, bool) {
	s, ok := p.AirState()
	if !ok {
		return 0, false
	}
	return get(s), true
}

func (p DataPoint) GetComputedField(f ComputedField) (float64, bool) {
	switch f {
	case SaturationPressure:
		return p.SaturationPressure()
	case Enthalpy:
		return p.Enthalpy()
	case HumidityRatio:
		return p.HumidityRatio()
	case WetBulbTemperature:
		return p.WetBulb()
	case Density:
		return p.Density()
	case SpecificVolume:
		return p.SpecificVolume()
	}
	return 0, false
}
