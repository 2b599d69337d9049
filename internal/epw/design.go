package epw

import (
	"strings"

	"go.uber.org/zap"
)

// DesignCondition is one design condition block of the DESIGN CONDITIONS
// header line: a title followed by heating, cooling and extreme statistics.
type DesignCondition struct {
	title  string
	values [numDesignFields]float64
	set    [numDesignFields]bool
}

// FromDesignConditionsString parses one comma separated block.
func FromDesignConditionsString(line string) (DesignCondition, bool) {
	return FromDesignConditionsStrings(strings.Split(line, ","))
}

// FromDesignConditionsStrings needs at least the 68 tokens of one block.
// Statistics that do not parse are left unset.
func FromDesignConditionsStrings(list []string) (DesignCondition, bool) {
	return fromDesignConditionsStrings(list, zap.L())
}

func fromDesignConditionsStrings(list []string, logger *zap.Logger) (DesignCondition, bool) {
	if len(list) < int(numDesignFields) {
		logger.Error("[EPW_DESIGN_FIELDS] Too few fields in EPW design condition",
			zap.Int("expected", int(numDesignFields)), zap.Int("received", len(list)))
		return DesignCondition{}, false
	}
	var dc DesignCondition
	dc.title = list[TitleOfDesignCondition]
	for f := HeatingColdestMonth; f < numDesignFields; f++ {
		if f.isLabel() {
			continue
		}
		dc.setString(f, list[f])
	}
	return dc, true
}

func (dc *DesignCondition) setString(f DesignField, s string) bool {
	var v float64
	var ok bool
	if f.isInt() {
		var i int
		i, ok = parseIntPrefix(s)
		v = float64(i)
	} else {
		v, ok = parseFloatPrefix(s)
	}
	dc.values[f], dc.set[f] = v, ok
	return ok
}

func (dc DesignCondition) TitleOfDesignCondition() string { return dc.title }

// SetField stores v, truncated for integer fields. Labels cannot be set.
func (dc *DesignCondition) SetField(f DesignField, v float64) bool {
	if f < 0 || f >= numDesignFields || f.isLabel() {
		return false
	}
	if f.isInt() {
		v = float64(int(v))
	}
	dc.values[f], dc.set[f] = v, true
	return true
}

// GetField returns a statistic; integer fields are widened. Labels and
// unset statistics report false.
func (dc DesignCondition) GetField(f DesignField) (float64, bool) {
	if f < 0 || f >= numDesignFields || f.isLabel() || !dc.set[f] {
		return 0, false
	}
	return dc.values[f], true
}

func (dc DesignCondition) GetFieldByName(name string) (float64, bool, error) {
	f, err := ParseDesignField(name)
	if err != nil {
		return 0, false, err
	}
	v, ok := dc.GetField(f)
	return v, ok, nil
}

func (dc DesignCondition) GetUnitsByName(name string) (string, error) {
	f, err := ParseDesignField(name)
	if err != nil {
		return "", err
	}
	return f.Units(), nil
}

// Fields returns the set statistics keyed by field.
func (dc DesignCondition) Fields() map[DesignField]float64 {
	out := make(map[DesignField]float64)
	for f := DesignField(0); f < numDesignFields; f++ {
		if v, ok := dc.GetField(f); ok {
			out[f] = v
		}
	}
	return out
}
