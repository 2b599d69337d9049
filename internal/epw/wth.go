package epw

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"epw-platform/internal/psychro"
)

const (
	wthColumns    = "!Date\tTime\tTa [K]\tPb [Pa]\tWs [m/s]\tWd [deg]\tHr [g/kg]\tIth [kJ/m^2]\tIdn [kJ/m^2]\tTs [K]\tRn [-]\tSn [-]"
	wthDayColumns = "!Date\tDofW\tDtype\tDST\tTgrnd [K]"
	// ground temperature written for every day, in K
	wthGroundTemperature = "283.15"
)

// ToWthString renders the record as one CONTAM weather line. Dry bulb,
// pressure, wind and some measure of humidity are required.
func (p DataPoint) ToWthString() (string, error) {
	date := fmt.Sprintf("%d/%d", p.month, p.day)
	hms := fmt.Sprintf("%02d:%02d:00", p.hour, p.minute)
	missing := func(what string) error {
		return fmt.Errorf("missing %s on %s at %s", what, date, hms)
	}

	db, ok := p.DryBulbTemperature()
	if !ok {
		return "", missing("dry bulb temperature")
	}
	pressure, ok := p.AtmosphericStationPressure()
	if !ok {
		return "", missing("atmospheric station pressure")
	}
	if _, ok := p.WindSpeed(); !ok {
		return "", missing("wind speed")
	}
	if _, ok := p.WindDirection(); !ok {
		return "", missing("wind direction")
	}

	var pw float64
	if rh, ok := p.RelativeHumidity(); ok {
		pw = 0.01 * rh * psychro.SaturationPressure(db)
	} else if dp, ok := p.DewPointTemperature(); ok {
		pw = psychro.SaturationPressure(dp)
	} else {
		return "", fmt.Errorf("cannot compute humidity ratio on %s at %s", date, hms)
	}
	w := psychro.HumidityRatio(pw, pressure)

	return date + "\t" + hms +
		"\t" + formatFixed(db+273.15) +
		"\t" + p.m[AtmosphericStationPressure].raw +
		"\t" + p.m[WindSpeed].raw +
		"\t" + p.m[WindDirection].raw +
		"\t" + formatFixed(w*1000) +
		// solar fluxes, sky temperature, rain and snow are not carried over
		"\t0\t0\t0\t0\t0", nil
}

// TranslateToWthFile writes the CONTAM weather file to path. An empty
// description becomes "Translated from <epw path>".
func (f *File) TranslateToWthFile(path, description string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wth file %q: %w", path, err)
	}
	if err := f.TranslateToWth(out, description); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// TranslateToWth writes the file in CONTAM WTH format: a header, one line
// per day of the data period and one line per record. The line before the
// first record repeats the last record one time step earlier, so the
// weather is defined at the start of the period.
func (f *File) TranslateToWth(w io.Writer, description string) error {
	data, err := f.Data()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("wth: %w to translate", ErrNoData)
	}
	if description == "" {
		description = "Translated from " + f.path
	}

	first, err := f.wthStartPoint(data)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "WeatherFile ContamW 2.0\n%s\n", description)
	fmt.Fprintf(bw, "%s\t!start date\n", f.startDate.MonthDay())
	fmt.Fprintf(bw, "%s\t!end date\n", f.endDate.MonthDay())
	fmt.Fprintln(bw, wthDayColumns)
	dow := int(f.startDayOfWeek) + 1
	for d := f.startDate; !d.After(f.endDate); d = d.AddDays(1) {
		fmt.Fprintf(bw, "%s\t%d\t%d\t0\t%s\n", d.MonthDay(), dow, dow, wthGroundTemperature)
		if dow++; dow > 7 {
			dow = 1
		}
	}

	fmt.Fprintln(bw, wthColumns)
	line, err := first.ToWthString()
	if err != nil {
		f.logger.Error("[WTH_TRANSLATE] Translation failed on starting data point", zap.Error(err))
		return fmt.Errorf("wth starting data point: %w", err)
	}
	fmt.Fprintln(bw, line)
	for i, pt := range data {
		line, err := pt.ToWthString()
		if err != nil {
			f.logger.Error("[WTH_TRANSLATE] Translation failed on data point", zap.Int("index", i), zap.Error(err))
			return fmt.Errorf("wth data point %d: %w", i, err)
		}
		fmt.Fprintln(bw, line)
	}
	return bw.Flush()
}

// wthStartPoint copies the last record to one time step before the first.
// Midnight is written as hour 24 of the previous day.
func (f *File) wthStartPoint(data []DataPoint) (DataPoint, error) {
	dt, err := data[0].DateTime()
	if err != nil {
		return DataPoint{}, err
	}
	dt = dt.Add(f.TimeStep().Neg())
	date, hour := dt.Date(), dt.Time().Hours()
	if hour == 0 {
		date, hour = date.AddDays(-1), 24
	}

	tokens := data[len(data)-1].ToEpwStrings()
	tokens[Year] = strconv.Itoa(date.Year())
	tokens[Month] = strconv.Itoa(int(date.MonthOfYear()))
	tokens[Day] = strconv.Itoa(date.DayOfMonth())
	tokens[Hour] = strconv.Itoa(hour)
	tokens[Minute] = strconv.Itoa(dt.Time().Minutes())
	pt, ok := FromEpwStrings(tokens, true)
	if !ok {
		return DataPoint{}, fmt.Errorf("wth: failed to create starting data point")
	}
	return pt, nil
}
