package epw

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when a field name does not resolve.
	ErrUnknownField = errors.New("unknown field")
	// ErrNoData is returned when a series would be empty.
	ErrNoData = errors.New("no data")
	// ErrNotParsed is returned by lazy accessors when the file content was
	// never retained, for instance after a header-only load from a reader.
	ErrNotParsed = errors.New("epw data not parsed")
)

// Parse stages, reported in ParseError.Stage and in log fields.
const (
	StageHeader     = "header"
	StageLocation   = "location"
	StageDesign     = "design conditions"
	StageTypical    = "typical/extreme periods"
	StageGround     = "ground temperatures"
	StageHolidays   = "holidays/daylight savings"
	StageComments   = "comments"
	StageDataPeriod = "data periods"
	StageData       = "data"
	StageValidation = "validation"
)

// ParseError is returned for every fatal failure while reading an EPW file.
type ParseError struct {
	Line  int
	Stage string
	Msg   string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("epw %s, line %d: %s", e.Stage, e.Line, e.Msg)
	}
	return fmt.Sprintf("epw %s: %s", e.Stage, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(line int, stage, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}
