// Package psychro computes moist-air properties with the correlations of
// ASHRAE Fundamentals 2009, chapter 1.
package psychro

import "math"

const (
	// MinTemperature and MaxTemperature bound the saturation pressure correlation, in C.
	MinTemperature = -100.0
	MaxTemperature = 200.0

	// DefaultTolerance and DefaultMaxIterations are used by the AirState constructors.
	DefaultTolerance     = 1e-4
	DefaultMaxIterations = 100

	kelvinOffset = 273.15
	// ratio of molecular masses of water vapor and dry air
	massRatio = 0.621945
)

// Saturation pressure coefficients, eqn 5 (ice, C1-C7) and eqn 6 (water, C8-C13).
const (
	c1  = -5.6745359e+03
	c2  = 6.3925247e+00
	c3  = -9.6778430e-03
	c4  = 6.2215701e-07
	c5  = 2.0747825e-09
	c6  = -9.4840240e-13
	c7  = 4.1635019e+00
	c8  = -5.8002206e+03
	c9  = 1.3914993e+00
	c10 = -4.8640239e-02
	c11 = 4.1764768e-05
	c12 = -1.4452093e-08
	c13 = 6.5459673e+00
)

// SaturationPressure returns the water vapor saturation pressure in Pa for a
// temperature in C. Callers range check against MinTemperature/MaxTemperature.
func SaturationPressure(dryBulb float64) float64 {
	T := dryBulb + kelvinOffset
	var rhs float64
	if T < kelvinOffset {
		rhs = c1/T + c2 + T*(c3+T*(c4+T*(c5+T*c6))) + c7*math.Log(T)
	} else {
		rhs = c8/T + c9 + T*(c10+T*(c11+T*c12)) + c13*math.Log(T)
	}
	return math.Exp(rhs)
}

// SaturationPressureDerivative returns d(psat)/dT in Pa/K given psat at the same temperature.
func SaturationPressureDerivative(dryBulb, psat float64) float64 {
	T := dryBulb + kelvinOffset
	T2 := T * T
	T3 := T * T2
	var fp float64
	if T < kelvinOffset {
		fp = -c1/T2 + c3 + 2*T*c4 + 3*T2*c5 + 4*T3*c6 + c7/T
	} else {
		fp = -c8/T2 + c10 + 2*T*c11 + 3*T2*c12 + c13/T
	}
	return fp * psat
}

// HumidityRatio is eqn 22: kg water per kg dry air for vapor partial pressure pw.
func HumidityRatio(pw, pressure float64) float64 {
	return massRatio * pw / (pressure - pw)
}

// Enthalpy is eqn 32 in kJ/kg.
func Enthalpy(dryBulb, humidityRatio float64) float64 {
	return 1.006*dryBulb + humidityRatio*(2501+1.86*dryBulb)
}

// SpecificVolume is eqn 28 in m3/kg.
func SpecificVolume(dryBulb, humidityRatio, pressure float64) float64 {
	return 0.287042 * (dryBulb + kelvinOffset) * (1 + 1.607858*humidityRatio) / pressure
}

// WetBulbTemperature solves eqns 35/37 for the thermodynamic wet bulb by
// Newton iteration, written as the root of
//
//	f = W*C - A*Ws* + B
//	A = a0 + a1*t*,  B = b*(t - t*),  C = c0 + c1*t + c2*t*
//
// It reports false when maxIter iterations do not converge.
func WetBulbTemperature(dryBulb, pressure, humidityRatio, tolerance float64, maxIter int) (float64, bool) {
	a0, a1, b := 2501.0, -2.326, 1.006
	c0, c1t, c2 := 2501.0, 1.86*dryBulb, -4.186
	ap, bp, cp := -2.326, -1.006, -4.186
	if dryBulb < 0 {
		a0, a1 = 2830, -0.24
		c0, c2 = 2830, -2.1
		ap, cp = -0.24, -2.1
	}

	tstar := dryBulb
	for i := 0; i < maxIter; i++ {
		A := a0 + a1*tstar
		B := b * (dryBulb - tstar)
		C := c0 + c1t + c2*tstar
		pws := SaturationPressure(tstar)
		pwsp := SaturationPressureDerivative(tstar, pws)
		dp := pressure - pws
		ws := massRatio * pws / dp
		wsp := (massRatio*pwsp*dp + massRatio*pws*pwsp) / (dp * dp)
		f := humidityRatio*C - A*ws + B
		fp := humidityRatio*cp - A*wsp - ap*ws + bp
		delta := -f / fp
		tstar += delta
		if math.Abs(delta/(kelvinOffset+tstar)) <= tolerance {
			return tstar, true
		}
	}
	return 0, false
}

// DewPointTemperature solves psat(Td) = pw (eqn 38) by Newton iteration.
func DewPointTemperature(dryBulb, pw, tolerance float64, maxIter int) (float64, bool) {
	tdew := dryBulb
	for i := 0; i < maxIter; i++ {
		pws := SaturationPressure(tdew)
		delta := -(pws - pw) / SaturationPressureDerivative(tdew, pws)
		tdew += delta
		if math.Abs(delta/(kelvinOffset+tdew)) <= tolerance {
			return tdew, true
		}
	}
	return 0, false
}

// InDomain reports whether t (C) is inside the correlation range.
func InDomain(t float64) bool {
	return t >= MinTemperature && t <= MaxTemperature
}
