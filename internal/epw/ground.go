package epw

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
)

// groundMissing is the value of any ground field the file leaves blank.
const groundMissing = -9999.0

// GroundTemperatureDepth is one depth group of the GROUND TEMPERATURES
// header line: the depth, soil properties and twelve monthly temperatures.
type GroundTemperatureDepth struct {
	values [numDepthFields]float64
}

// NewGroundTemperatureDepth returns a group with every value at -9999.
func NewGroundTemperatureDepth() GroundTemperatureDepth {
	var g GroundTemperatureDepth
	for i := range g.values {
		g.values[i] = groundMissing
	}
	return g
}

// FromGroundTemperatureDepthsStrings parses the 16 tokens of one group.
// Blank or unparsable tokens keep -9999.
func FromGroundTemperatureDepthsStrings(list []string) (GroundTemperatureDepth, bool) {
	return fromGroundTemperatureDepthsStrings(list, zap.L())
}

func fromGroundTemperatureDepthsStrings(list []string, logger *zap.Logger) (GroundTemperatureDepth, bool) {
	if len(list) != int(numDepthFields) {
		logger.Error("[EPW_GROUND_FIELDS] Unexpected number of fields in EPW ground temperature depth",
			zap.Int("expected", int(numDepthFields)), zap.Int("received", len(list)))
		return GroundTemperatureDepth{}, false
	}
	g := NewGroundTemperatureDepth()
	for i, s := range list {
		if v, ok := parseFloatPrefix(s); ok {
			g.values[i] = v
		}
	}
	return g, true
}

func (g GroundTemperatureDepth) Depth() float64 { return g.values[GroundTemperatureDepthField] }

// MonthlyTemperatures returns the January to December ground temperatures.
func (g GroundTemperatureDepth) MonthlyTemperatures() []float64 {
	out := make([]float64, 12)
	copy(out, g.values[JanGroundTemperature:])
	return out
}

func (g *GroundTemperatureDepth) SetField(f DepthField, v float64) bool {
	if f < 0 || f >= numDepthFields {
		return false
	}
	g.values[f] = v
	return true
}

// GetField always reports a value for a known field; -9999 means the file
// left it blank.
func (g GroundTemperatureDepth) GetField(f DepthField) (float64, bool) {
	if f < 0 || f >= numDepthFields {
		return 0, false
	}
	return g.values[f], true
}

func (g GroundTemperatureDepth) GetFieldByName(name string) (float64, bool, error) {
	f, err := ParseDepthField(name)
	if err != nil {
		return 0, false, err
	}
	v, ok := g.GetField(f)
	return v, ok, nil
}

func (g GroundTemperatureDepth) GetUnitsByName(name string) (string, error) {
	f, err := ParseDepthField(name)
	if err != nil {
		return "", err
	}
	return f.Units(), nil
}

// sortDepths orders groups from shallowest to deepest.
func sortDepths(depths []GroundTemperatureDepth) {
	slices.SortStableFunc(depths, func(a, b GroundTemperatureDepth) int {
		return cmp.Compare(a.Depth(), b.Depth())
	})
}
