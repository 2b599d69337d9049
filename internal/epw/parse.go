package epw

import (
	"bufio"
	"bytes"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"epw-platform/internal/calendar"
)

const (
	headerLines        = 8
	maxLineBytes       = 1 << 20
	locationFields     = 10
	dataPeriodFields   = 7
	designBlockFields  = int(numDesignFields)
	groundBlockFields  = int(numDepthFields)
	holidayHeaderCount = 5
)

// header is everything read from the eight header lines, plus what the data
// body reveals about the calendar of the file.
type header struct {
	city                string
	stateProvinceRegion string
	country             string
	dataSource          string
	wmoNumber           string
	latitude            float64
	longitude           float64
	timeZone            float64
	elevation           float64

	designs               []DesignCondition
	typicalExtremePeriods []TypicalExtremePeriod
	depths                []GroundTemperatureDepth

	leapYearObserved bool
	dstStart         *calendar.Date
	dstEnd           *calendar.Date
	holidays         []Holiday

	comments1 string
	comments2 string

	recordsPerHour      int
	startDayOfWeek      calendar.DayOfWeek
	startDate           calendar.Date
	endDate             calendar.Date
	startDateActualYear *int
	endDateActualYear   *int
	isActual            bool
}

// parseResult is the outcome of one pass over the file content.
type parseResult struct {
	header
	data         []DataPoint
	minutesMatch bool
}

type parser struct {
	logger *zap.Logger
	path   string
	strict bool
}

// bodyLine is a data line whose timestamp has been read and checked.
type bodyLine struct {
	line          int
	year          int
	month         int
	day           int
	hour          int
	currentMinute int
	tokens        []string
}

func (p *parser) parse(content []byte, storeData bool) (*parseResult, error) {
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	res := &parseResult{minutesMatch: true}
	steps := []struct {
		stage string
		fn    func(string) error
	}{
		{StageLocation, res.parseLocation},
		{StageDesign, func(l string) error { return res.parseDesignConditions(l, p.logger) }},
		{StageTypical, func(l string) error { res.parseTypicalExtremePeriods(l, p.logger); return nil }},
		{StageGround, func(l string) error { return res.parseGroundTemperatures(l, p.logger) }},
		{StageHolidays, func(l string) error { return res.parseHolidaysDaylightSavings(l, p.logger) }},
		{StageComments, func(l string) error { res.comments1 = commentText(l); return nil }},
		{StageComments, func(l string) error { res.comments2 = commentText(l); return nil }},
		{StageDataPeriod, res.parseDataPeriod},
	}
	for i, step := range steps {
		if !sc.Scan() {
			return nil, newParseError(i+1, StageHeader, "could not read line %d", i+1)
		}
		if err := step.fn(trimEOL(sc.Text())); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = i + 1
				return nil, pe
			}
			return nil, &ParseError{Line: i + 1, Stage: step.stage, Msg: err.Error(), Err: err}
		}
	}

	lineNumber := headerLines
	minutesPerRecord := 60 / res.recordsPerHour
	currentMinute := 0
	realYear := true
	wrapAround := false
	haveStart := false
	var startDate, lastDate, endDate calendar.Date
	var lines []bodyLine
	for sc.Scan() {
		lineNumber++
		tokens := strings.Split(trimEOL(sc.Text()), ",")
		if len(tokens) < 5 {
			return nil, newParseError(lineNumber, StageData, "insufficient weather data")
		}
		year, ok1 := parseIntPrefix(tokens[Year])
		month, ok2 := parseIntPrefix(tokens[Month])
		day, ok3 := parseIntPrefix(tokens[Day])
		if !ok1 || !ok2 || !ok3 {
			return nil, newParseError(lineNumber, StageData, "could not read line")
		}
		date, err := calendar.NewDateWithYear(calendar.MonthOfYear(month), day, year)
		if err != nil {
			return nil, &ParseError{Line: lineNumber, Stage: StageData, Msg: "could not read line", Err: err}
		}
		if !haveStart {
			startDate, haveStart = date, true
		}
		endDate = date
		if !lastDate.IsZero() {
			if math.Abs(endDate.Sub(lastDate).TotalDays()) > 1 {
				if realYear {
					p.logger.Info("[EPW_TYPICAL_YEAR] Successive data points are more than 1 day apart, data will be treated as typical (TMY)",
						zap.String("path", p.path), zap.Int("line", lineNumber),
						zap.Stringer("from", lastDate), zap.Stringer("to", endDate))
				}
				realYear = false
			}
			if endDate.MonthOfYear() < lastDate.MonthOfYear() {
				wrapAround = true
			}
		}
		lastDate = date

		if !storeData {
			continue
		}
		hour, ok1 := parseIntPrefix(tokens[Hour])
		minutesInFile, ok2 := parseIntPrefix(tokens[Minute])
		if !ok1 || !ok2 {
			return nil, newParseError(lineNumber, StageData, "could not read line")
		}
		if res.recordsPerHour != 1 {
			currentMinute += minutesPerRecord
			if currentMinute >= 60 {
				currentMinute = 0
			}
		}
		if currentMinute != minutesInFile && res.minutesMatch {
			p.logger.Error("[EPW_MINUTES_MISMATCH] Minutes field does not agree with computed value, using computed value",
				zap.String("path", p.path), zap.Int("line", lineNumber),
				zap.Int("file_minutes", minutesInFile), zap.Int("computed_minutes", currentMinute))
			res.minutesMatch = false
		}
		lines = append(lines, bodyLine{lineNumber, year, month, day, hour, currentMinute, tokens})
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Line: lineNumber + 1, Stage: StageData, Msg: "could not read line", Err: err}
	}

	res.data = make([]DataPoint, 0, len(lines))
	for _, bl := range lines {
		day := bl.day
		// In a typical year built from a leap year, hour 24 of Feb 28 must roll into Mar 1.
		if !realYear && bl.month == 2 && day == 28 && bl.hour == 24 && bl.currentMinute == 0 && calendar.IsLeapYearNumber(bl.year) {
			day = 29
		}
		pt, ok := fromEpwStringsAt(p.logger, bl.year, bl.month, day, bl.hour, bl.currentMinute, bl.tokens, true)
		if !ok {
			return nil, newParseError(bl.line, StageData, "failed to parse data point")
		}
		res.data = append(res.data, pt)
	}

	if !haveStart {
		return nil, newParseError(0, StageValidation, "could not find start date in data section")
	}
	if res.startDate.MonthOfYear() != startDate.MonthOfYear() || res.startDate.DayOfMonth() != startDate.DayOfMonth() {
		return nil, newParseError(0, StageValidation, "header start date %s does not match data start %s",
			res.startDate.MonthDay(), startDate.MonthDay())
	}
	if res.endDate.MonthOfYear() != endDate.MonthOfYear() || res.endDate.DayOfMonth() != endDate.DayOfMonth() {
		return nil, newParseError(0, StageValidation, "header end date %s does not match data end %s",
			res.endDate.MonthDay(), endDate.MonthDay())
	}

	if realYear {
		if res.startDayOfWeek != startDate.DayOfWeek() {
			if p.strict {
				return nil, newParseError(0, StageValidation, "header start day of week %s does not match actual start day %s",
					res.startDayOfWeek, startDate.DayOfWeek())
			}
			p.logger.Info("[EPW_TYPICAL_YEAR] Header start day of week does not match data, data will be treated as typical (TMY)",
				zap.String("path", p.path), zap.Stringer("header", res.startDayOfWeek), zap.Stringer("actual", startDate.DayOfWeek()))
			realYear = false
		} else {
			sy, ey := startDate.Year(), endDate.Year()
			res.startDate, res.startDateActualYear = startDate, &sy
			res.endDate, res.endDateActualYear = endDate, &ey
		}
	}
	if !realYear && wrapAround {
		return nil, newParseError(0, StageValidation, "wrap around years not supported for TMY data")
	}
	res.isActual = realYear
	return res, nil
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// commentText drops the COMMENTS n specifier.
func commentText(line string) string {
	if i := strings.IndexByte(line, ','); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

func (h *header) parseLocation(line string) error {
	split := strings.Split(line, ",")
	if len(split) < locationFields {
		return newParseError(0, StageLocation, "expected %d location fields rather than %d", locationFields, len(split))
	}
	if split[0] != "LOCATION" {
		return newParseError(0, StageLocation, "missing LOCATION specifier")
	}
	h.city = strings.TrimSpace(split[1])
	h.stateProvinceRegion = strings.TrimSpace(split[2])
	h.country = strings.TrimSpace(split[3])
	h.dataSource = strings.TrimSpace(split[4])
	h.wmoNumber = strings.TrimSpace(split[5])

	for _, f := range []struct {
		name string
		s    string
		dst  *float64
	}{
		{"latitude", split[6], &h.latitude},
		{"longitude", split[7], &h.longitude},
		{"timezone", split[8], &h.timeZone},
		{"elevation", split[9], &h.elevation},
	} {
		v, ok := parseFloatPrefix(f.s)
		if !ok {
			return newParseError(0, StageLocation, "non-numerical %s %q", f.name, strings.TrimSpace(f.s))
		}
		*f.dst = v
	}
	return nil
}

func (h *header) parseDesignConditions(line string, logger *zap.Logger) error {
	split := strings.Split(line, ",")
	if split[0] != "DESIGN CONDITIONS" {
		return newParseError(0, StageDesign, "missing DESIGN CONDITIONS specifier")
	}
	if len(split) < 2 || strings.TrimSpace(split[1]) == "0" {
		logger.Warn("[EPW_NO_DESIGN] Appears there are no design condition fields")
		return nil
	}
	n, ok := parseIntPrefix(split[1])
	if !ok {
		return newParseError(0, StageDesign, "non-integral number of design conditions %q", split[1])
	}
	expected := 2 + n*designBlockFields
	if len(split) != expected {
		logger.Warn("[EPW_DESIGN_SIZE] Unexpected number of design condition fields, design conditions will not be parsed",
			zap.Int("expected", expected), zap.Int("received", len(split)))
		return nil
	}
	if n > 1 {
		logger.Warn("[EPW_DESIGN_COUNT] Found more than one design condition", zap.Int("count", n))
	}
	for j := 0; j < n; j++ {
		start := 2 + j*designBlockFields
		dc, ok := fromDesignConditionsStrings(split[start:start+designBlockFields], logger)
		if !ok {
			return newParseError(0, StageDesign, "failed to parse design condition %d", j+1)
		}
		h.designs = append(h.designs, dc)
	}
	return nil
}

// parseTypicalExtremePeriods never fails the load; a malformed line leaves
// the list empty.
func (h *header) parseTypicalExtremePeriods(line string, logger *zap.Logger) {
	split := strings.Split(line, ",")
	if strings.TrimSpace(split[0]) != "TYPICAL/EXTREME PERIODS" || len(split) < 2 {
		logger.Warn("[EPW_TYPICAL_PERIODS] Missing TYPICAL/EXTREME PERIODS specifier")
		return
	}
	n, ok := parseIntPrefix(split[1])
	if !ok || n < 0 || len(split) < 2+4*n {
		logger.Warn("[EPW_TYPICAL_PERIODS] Malformed typical/extreme periods",
			zap.String("count", strings.TrimSpace(split[1])), zap.Int("fields", len(split)))
		return
	}
	periods := make([]TypicalExtremePeriod, 0, n)
	for i := 0; i < n; i++ {
		t := split[2+4*i : 6+4*i]
		periods = append(periods, TypicalExtremePeriod{
			Name:            strings.TrimSpace(t[0]),
			Type:            strings.TrimSpace(t[1]),
			StartDateString: strings.TrimSpace(t[2]),
			EndDateString:   strings.TrimSpace(t[3]),
		})
	}
	h.typicalExtremePeriods = periods
}

func (h *header) parseGroundTemperatures(line string, logger *zap.Logger) error {
	split := strings.Split(line, ",")
	if split[0] != "GROUND TEMPERATURES" {
		return newParseError(0, StageGround, "missing GROUND TEMPERATURES specifier")
	}
	if len(split) < 2 || strings.TrimSpace(split[1]) == "0" {
		logger.Warn("[EPW_NO_GROUND] Appears there are no ground temperature depth fields")
		return nil
	}
	n, ok := parseIntPrefix(split[1])
	if !ok || n < 0 {
		return newParseError(0, StageGround, "non-integral number of ground temperature depths %q", split[1])
	}
	expected := 2 + n*groundBlockFields
	if len(split) != expected {
		return newParseError(0, StageGround, "expected %d ground temperature depth fields rather than %d", expected, len(split))
	}
	logger.Debug("[EPW_GROUND] Found ground temperature depths", zap.Int("count", n))
	for i := 0; i < n; i++ {
		start := 2 + i*groundBlockFields
		gtd, ok := fromGroundTemperatureDepthsStrings(split[start:start+groundBlockFields], logger)
		if !ok {
			return newParseError(0, StageGround, "failed to parse ground temperature depth group %d", i+1)
		}
		h.depths = append(h.depths, gtd)
	}
	sortDepths(h.depths)
	return nil
}

func (h *header) parseHolidaysDaylightSavings(line string, logger *zap.Logger) error {
	split := strings.Split(line, ",")
	if !strings.EqualFold(strings.TrimSpace(split[0]), "HOLIDAYS/DAYLIGHT SAVINGS") {
		return newParseError(0, StageHolidays, "missing HOLIDAYS/DAYLIGHT SAVINGS specifier")
	}
	if len(split) < holidayHeaderCount {
		return newParseError(0, StageHolidays, "expected at least %d fields rather than %d", holidayHeaderCount, len(split))
	}
	h.leapYearObserved = strings.EqualFold(strings.TrimSpace(split[1]), "Yes")

	startDay := strings.TrimSpace(split[2])
	endDay := strings.TrimSpace(split[3])
	switch {
	case startDay == "0":
		logger.Debug("[EPW_DST] No daylight saving start date")
	case endDay == "0":
		logger.Error("[EPW_DST] No daylight saving end date, skipping")
	default:
		start, err := parseMonthDay(startDay)
		if err != nil {
			return &ParseError{Stage: StageHolidays, Msg: "failed to parse daylight saving start day " + startDay, Err: err}
		}
		end, err := parseMonthDay(endDay)
		if err != nil {
			return &ParseError{Stage: StageHolidays, Msg: "failed to parse daylight saving end day " + endDay, Err: err}
		}
		h.dstStart, h.dstEnd = &start, &end
	}

	n, ok := parseIntPrefix(split[4])
	if !ok {
		return newParseError(0, StageHolidays, "non-integral number of holidays %q", strings.TrimSpace(split[4]))
	}
	for i := holidayHeaderCount; i < holidayHeaderCount+2*n; i += 2 {
		if i+1 >= len(split) {
			logger.Error("[EPW_HOLIDAY] Fewer holidays than declared", zap.Int("declared", n))
			break
		}
		name := strings.TrimSpace(split[i])
		day := strings.TrimSpace(split[i+1])
		if name == "" || day == "" {
			logger.Error("[EPW_HOLIDAY] Empty holiday name or day, skipping",
				zap.Int("entry", i), zap.String("name", name), zap.String("day", day))
			continue
		}
		h.holidays = append(h.holidays, Holiday{Name: name, DateString: day})
	}
	return nil
}

func (h *header) parseDataPeriod(line string) error {
	split := strings.Split(line, ",")
	if len(split) < dataPeriodFields {
		return newParseError(0, StageDataPeriod, "expected %d data period fields rather than %d", dataPeriodFields, len(split))
	}
	if split[0] != "DATA PERIODS" {
		return newParseError(0, StageDataPeriod, "missing DATA PERIODS specifier")
	}
	n, ok := parseIntPrefix(split[1])
	if !ok {
		return newParseError(0, StageDataPeriod, "non-integral number of data periods %q", strings.TrimSpace(split[1]))
	}
	if n > 1 {
		return newParseError(0, StageDataPeriod, "more than one data period is not supported")
	}
	rph, ok := parseIntPrefix(split[2])
	if !ok || rph <= 0 {
		return newParseError(0, StageDataPeriod, "non-integral timestep %q", strings.TrimSpace(split[2]))
	}
	if 60%rph != 0 {
		return newParseError(0, StageDataPeriod,
			"number of records per hour of %d does not result in integral number of minutes between records", rph)
	}
	h.recordsPerHour = rph

	dow, err := calendar.ParseDayOfWeek(split[4])
	if err != nil {
		return &ParseError{Stage: StageDataPeriod, Msg: "bad start day of week", Err: err}
	}
	h.startDayOfWeek = dow

	start, startYear, err := parseDataPeriodDate(split[5])
	if err != nil {
		return &ParseError{Stage: StageDataPeriod, Msg: "failed to parse data period start date " + strings.TrimSpace(split[5]), Err: err}
	}
	end, endYear, err := parseDataPeriodDate(split[6])
	if err != nil {
		return &ParseError{Stage: StageDataPeriod, Msg: "failed to parse data period end date " + strings.TrimSpace(split[6]), Err: err}
	}
	h.startDate, h.startDateActualYear = start, startYear
	h.endDate, h.endDateActualYear = end, endYear
	return nil
}

// parseMonthDay reads M/D or M/D/Y.
func parseMonthDay(s string) (calendar.Date, error) {
	d, _, err := parseDataPeriodDate(s)
	return d, err
}

// parseDataPeriodDate reads M/D or M/D/Y and reports the year when given.
func parseDataPeriodDate(s string) (calendar.Date, *int, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 && len(parts) != 3 {
		return calendar.Date{}, nil, newParseError(0, StageDataPeriod, "bad date format %q", s)
	}
	month, ok1 := parseIntPrefix(parts[0])
	day, ok2 := parseIntPrefix(parts[1])
	if !ok1 || !ok2 {
		return calendar.Date{}, nil, newParseError(0, StageDataPeriod, "bad date %q", s)
	}
	if len(parts) == 2 {
		d, err := calendar.NewDate(calendar.MonthOfYear(month), day)
		return d, nil, err
	}
	year, ok := parseIntPrefix(parts[2])
	if !ok {
		return calendar.Date{}, nil, newParseError(0, StageDataPeriod, "bad year in date %q", s)
	}
	d, err := calendar.NewDateWithYear(calendar.MonthOfYear(month), day, year)
	if err != nil {
		return calendar.Date{}, nil, err
	}
	return d, &year, nil
}
