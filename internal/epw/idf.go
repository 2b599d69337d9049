package epw

import (
	"fmt"
	"strconv"
)

// Site:WeatherFile field indices written by ToIdfObject.
const (
	WeatherFileCity = iota
	WeatherFileStateProvinceRegion
	WeatherFileCountry
	WeatherFileDataSource
	WeatherFileWMONumber
	WeatherFileLatitude
	WeatherFileLongitude
	WeatherFileTimeZone
	WeatherFileElevation
	WeatherFileURL
	WeatherFileChecksum

	numWeatherFileFields
)

var weatherFileFieldNames = [numWeatherFileFields]string{
	"City", "State Province Region", "Country", "Data Source", "WMO Number",
	"Latitude", "Longitude", "Time Zone", "Elevation", "Url", "Checksum",
}

// WeatherFileFieldName is the IDD name of field i, or "" out of range.
func WeatherFileFieldName(i int) string {
	if i < 0 || i >= numWeatherFileFields {
		return ""
	}
	return weatherFileFieldNames[i]
}

// WeatherFileRecord is a generic model object record of string or numeric
// fields addressed by index.
type WeatherFileRecord struct {
	fields []string
}

func NewWeatherFileRecord() *WeatherFileRecord {
	return &WeatherFileRecord{fields: make([]string, numWeatherFileFields)}
}

func (r *WeatherFileRecord) SetString(i int, s string) error {
	if i < 0 || i >= len(r.fields) {
		return fmt.Errorf("weather file record: field index %d out of range", i)
	}
	r.fields[i] = s
	return nil
}

func (r *WeatherFileRecord) SetDouble(i int, v float64) error {
	return r.SetString(i, strconv.FormatFloat(v, 'g', -1, 64))
}

func (r *WeatherFileRecord) GetString(i int) (string, bool) {
	if i < 0 || i >= len(r.fields) {
		return "", false
	}
	return r.fields[i], true
}

// GetDouble parses the field; text fields report false.
func (r *WeatherFileRecord) GetDouble(i int) (float64, bool) {
	s, ok := r.GetString(i)
	if !ok || s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Fields returns a copy of every field in index order.
func (r *WeatherFileRecord) Fields() []string {
	return append([]string(nil), r.fields...)
}

// ToIdfObject maps the station description of f onto a weather file record.
func ToIdfObject(f *File) *WeatherFileRecord {
	r := NewWeatherFileRecord()
	// indices are in range by construction
	_ = r.SetString(WeatherFileCity, f.City())
	_ = r.SetString(WeatherFileStateProvinceRegion, f.StateProvinceRegion())
	_ = r.SetString(WeatherFileCountry, f.Country())
	_ = r.SetString(WeatherFileDataSource, f.DataSource())
	_ = r.SetString(WeatherFileWMONumber, f.WMONumber())
	_ = r.SetDouble(WeatherFileLatitude, f.Latitude())
	_ = r.SetDouble(WeatherFileLongitude, f.Longitude())
	_ = r.SetDouble(WeatherFileTimeZone, f.TimeZone())
	_ = r.SetDouble(WeatherFileElevation, f.Elevation())
	_ = r.SetString(WeatherFileURL, f.Path())
	_ = r.SetString(WeatherFileChecksum, f.Checksum())
	return r
}
