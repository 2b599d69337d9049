// Package epw reads EnergyPlus weather (EPW) files: the eight header lines
// describing the station, design conditions, ground temperatures, holidays
// and data period, and the hourly or sub-hourly data records that follow.
//
// Load parses the header and scans the data body to classify the file as an
// actual (AMY) or typical (TMY) year. Records are kept only when requested
// with WithStoreData; otherwise they are parsed on first use.
package epw

import (
	"fmt"
	"hash/crc32"
	"os"
	"slices"
	"sync"

	"go.uber.org/zap"

	"epw-platform/internal/calendar"
)

type parseState int

const (
	parseNone parseState = iota
	parseHeader
	parseData
)

// File is a loaded EPW file. Header accessors are safe for concurrent use;
// the record set is parsed at most once behind a mutex.
type File struct {
	header

	path     string
	checksum string
	logger   *zap.Logger
	strict   bool
	store    bool

	mu           sync.Mutex
	state        parseState
	content      []byte
	data         []DataPoint
	minutesMatch bool
}

// Option configures Load and LoadFromString.
type Option func(*File)

// WithStoreData parses and keeps every data record during the load.
func WithStoreData() Option {
	return func(f *File) { f.store = true }
}

// WithStrictActualYear fails the load when the header start day of week
// does not match the first data record, instead of treating the data as a
// typical year.
func WithStrictActualYear() Option {
	return func(f *File) { f.strict = true }
}

// WithLogger sets the logger for parse diagnostics. The default is zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// Load reads and parses the EPW file at path.
func Load(path string, opts ...Option) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("epw file %q: %w", path, err)
	}
	return load(path, content, opts)
}

// LoadFromString parses EPW content held in memory. Path is empty.
func LoadFromString(content string, opts ...Option) (*File, error) {
	return load("", []byte(content), opts)
}

// LoadBytes parses content obtained elsewhere, such as a download. Path is
// recorded as the file's origin only.
func LoadBytes(path string, content []byte, opts ...Option) (*File, error) {
	return load(path, content, opts)
}

func load(path string, content []byte, opts []Option) (*File, error) {
	f := &File{path: path, logger: zap.L(), minutesMatch: true}
	for _, opt := range opts {
		opt(f)
	}
	f.checksum = Checksum(content)

	res, err := f.parser().parse(content, f.store)
	if err != nil {
		f.logger.Error("[EPW_LOAD_FAILED] EPW file cannot be processed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	f.header = res.header
	f.content = content
	f.state = parseHeader
	if f.store {
		f.data = res.data
		f.minutesMatch = res.minutesMatch
		f.state = parseData
	}
	return f, nil
}

func (f *File) parser() *parser {
	return &parser{logger: f.logger, path: f.path, strict: f.strict}
}

// Checksum is the CRC-32 (IEEE) of content as eight upper-case hex digits.
func Checksum(content []byte) string {
	return fmt.Sprintf("%08X", crc32.ChecksumIEEE(content))
}

// ensureData parses the records once. Callers hold f.mu.
func (f *File) ensureData() error {
	switch f.state {
	case parseData:
		return nil
	case parseNone:
		return ErrNotParsed
	}
	res, err := f.parser().parse(f.content, true)
	if err != nil {
		f.logger.Error("[EPW_PARSE_FAILED] EPW file cannot be processed", zap.String("path", f.path), zap.Error(err))
		return err
	}
	f.data = res.data
	f.minutesMatch = res.minutesMatch
	f.state = parseData
	return nil
}

// Data returns a copy of the records, parsing them on first use.
func (f *File) Data() ([]DataPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureData(); err != nil {
		return nil, err
	}
	return slices.Clone(f.data), nil
}

// DesignConditions returns the parsed design condition blocks. An empty
// section is a valid result.
func (f *File) DesignConditions() ([]DesignCondition, error) {
	if err := f.ensureHeader(); err != nil {
		return nil, err
	}
	return slices.Clone(f.designs), nil
}

// GroundTemperatureDepths returns the depth groups, shallowest first.
func (f *File) GroundTemperatureDepths() ([]GroundTemperatureDepth, error) {
	if err := f.ensureHeader(); err != nil {
		return nil, err
	}
	return slices.Clone(f.depths), nil
}

func (f *File) ensureHeader() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == parseNone {
		return ErrNotParsed
	}
	return nil
}

func (f *File) Path() string                { return f.path }
func (f *File) Checksum() string            { return f.checksum }
func (f *File) City() string                { return f.city }
func (f *File) StateProvinceRegion() string { return f.stateProvinceRegion }
func (f *File) Country() string             { return f.country }
func (f *File) DataSource() string          { return f.dataSource }
func (f *File) WMONumber() string           { return f.wmoNumber }
func (f *File) Latitude() float64           { return f.latitude }
func (f *File) Longitude() float64          { return f.longitude }
func (f *File) TimeZone() float64           { return f.timeZone }
func (f *File) Elevation() float64          { return f.elevation }

func (f *File) RecordsPerHour() int                { return f.recordsPerHour }
func (f *File) StartDayOfWeek() calendar.DayOfWeek { return f.startDayOfWeek }
func (f *File) StartDate() calendar.Date           { return f.startDate }
func (f *File) EndDate() calendar.Date             { return f.endDate }
func (f *File) IsActual() bool                     { return f.isActual }
func (f *File) LeapYearObserved() bool             { return f.leapYearObserved }
func (f *File) Holidays() []Holiday                { return slices.Clone(f.holidays) }
func (f *File) Comments1() string                  { return f.comments1 }
func (f *File) Comments2() string                  { return f.comments2 }

func (f *File) TypicalExtremePeriods() []TypicalExtremePeriod {
	return slices.Clone(f.typicalExtremePeriods)
}

// TimeStep is the interval between records.
func (f *File) TimeStep() calendar.Time {
	if f.recordsPerHour == 0 {
		return calendar.Time{}
	}
	return calendar.NewTime(0, 0, 60/f.recordsPerHour, 0)
}

// StartDateActualYear is the year of the first record of an actual-year
// file, or the year written in the DATA PERIODS line.
func (f *File) StartDateActualYear() (int, bool) { return derefYear(f.startDateActualYear) }

func (f *File) EndDateActualYear() (int, bool) { return derefYear(f.endDateActualYear) }

func derefYear(y *int) (int, bool) {
	if y == nil {
		return 0, false
	}
	return *y, true
}

// MinutesMatch reports whether every record's minute field agreed with the
// minute derived from the record position. It is only known once the
// records have been parsed.
func (f *File) MinutesMatch() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minutesMatch
}

func (f *File) DaylightSavingStartDate() (calendar.Date, bool) { return derefDate(f.dstStart) }
func (f *File) DaylightSavingEndDate() (calendar.Date, bool)   { return derefDate(f.dstEnd) }

func derefDate(d *calendar.Date) (calendar.Date, bool) {
	if d == nil {
		return calendar.Date{}, false
	}
	return *d, true
}
