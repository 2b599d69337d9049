package epw

// Holiday is a named day from the HOLIDAYS/DAYLIGHT SAVINGS line. The date
// is kept as written, e.g. "1/ 1" or "Jan 1".
type Holiday struct {
	Name       string `json:"name"`
	DateString string `json:"date"`
}

// TypicalExtremePeriod is one entry of the TYPICAL/EXTREME PERIODS line,
// such as the summer week nearest the maximum temperature.
type TypicalExtremePeriod struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	StartDateString string `json:"start"`
	EndDateString   string `json:"end"`
}
