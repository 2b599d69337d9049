package psychro

// AirState is a complete moist-air state.
type AirState struct {
	drybulb  float64
	dewpoint float64
	wetbulb  float64
	phi      float64
	pressure float64
	h        float64
	psat     float64
	w        float64
	v        float64
}

// DefaultAirState is air at 20 C, 101325 Pa and 50 % relative humidity.
func DefaultAirState() AirState {
	s := AirState{drybulb: 20, pressure: 101325, phi: 0.5}
	s.psat = SaturationPressure(s.drybulb)
	pw := s.phi * s.psat
	s.w = HumidityRatio(pw, s.pressure)
	s.h = Enthalpy(s.drybulb, s.w)
	s.v = SpecificVolume(s.drybulb, s.w, s.pressure)
	// both solvers converge at this state
	s.dewpoint, _ = DewPointTemperature(s.drybulb, pw, DefaultTolerance, DefaultMaxIterations)
	s.wetbulb, _ = WetBulbTemperature(s.drybulb, s.pressure, s.w, DefaultTolerance, DefaultMaxIterations)
	return s
}

// FromDryBulbDewPointPressure builds a state from dry bulb and dew point (C)
// and station pressure (Pa).
func FromDryBulbDewPointPressure(drybulb, dewpoint, pressure float64) (AirState, bool) {
	if !InDomain(drybulb) || !InDomain(dewpoint) {
		return AirState{}, false
	}
	s := AirState{drybulb: drybulb, dewpoint: dewpoint, pressure: pressure}
	pw := SaturationPressure(dewpoint)
	s.w = HumidityRatio(pw, pressure)
	s.psat = SaturationPressure(drybulb)
	s.phi = pw / s.psat
	s.h = Enthalpy(drybulb, s.w)
	s.v = SpecificVolume(drybulb, s.w, pressure)
	wb, ok := WetBulbTemperature(drybulb, pressure, s.w, DefaultTolerance, DefaultMaxIterations)
	if !ok {
		return AirState{}, false
	}
	s.wetbulb = wb
	return s, true
}

// FromDryBulbRelativeHumidityPressure builds a state from dry bulb (C),
// relative humidity (%) and station pressure (Pa).
func FromDryBulbRelativeHumidityPressure(drybulb, rh, pressure float64) (AirState, bool) {
	if !InDomain(drybulb) || rh < 0 || rh > 100 {
		return AirState{}, false
	}
	s := AirState{drybulb: drybulb, phi: 0.01 * rh, pressure: pressure}
	s.psat = SaturationPressure(drybulb)
	pw := s.phi * s.psat
	s.w = HumidityRatio(pw, pressure)
	s.h = Enthalpy(drybulb, s.w)
	s.v = SpecificVolume(drybulb, s.w, pressure)
	dp, ok := DewPointTemperature(drybulb, pw, DefaultTolerance, DefaultMaxIterations)
	if !ok {
		return AirState{}, false
	}
	s.dewpoint = dp
	wb, ok := WetBulbTemperature(drybulb, pressure, s.w, DefaultTolerance, DefaultMaxIterations)
	if !ok {
		return AirState{}, false
	}
	s.wetbulb = wb
	return s, true
}

func (s AirState) DryBulb() float64            { return s.drybulb }
func (s AirState) DewPoint() float64           { return s.dewpoint }
func (s AirState) WetBulb() float64            { return s.wetbulb }
func (s AirState) RelativeHumidity() float64   { return 100 * s.phi }
func (s AirState) Pressure() float64           { return s.pressure }
func (s AirState) Enthalpy() float64           { return s.h }
func (s AirState) SaturationPressure() float64 { return s.psat }
func (s AirState) Density() float64            { return 1 / s.v }
func (s AirState) SpecificVolume() float64     { return s.v }
func (s AirState) HumidityRatio() float64      { return s.w }

// R is the gas constant for dry air, J/(kg K), eqn 1.
func R() float64 {
	return 8314.472 / 28.966
}
