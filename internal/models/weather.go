package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"epw-platform/internal/epw"
)

// stationNamespace seeds station IDs, which are derived from the file
// checksum so re-ingesting the same file maps onto the same station.
var stationNamespace = uuid.MustParse("5b0f8a8e-4cf1-4f53-9f53-0d7a8f0e3c11")

// StationID is the ID a weather file with the given checksum is stored under.
func StationID(checksum string) uuid.UUID {
	return uuid.NewSHA1(stationNamespace, []byte(checksum))
}

// Station is the LOCATION and DATA PERIODS header of one weather file.
type Station struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	City                string    `json:"city" db:"city"`
	StateProvinceRegion string    `json:"state_province_region" db:"state_province_region"`
	Country             string    `json:"country" db:"country"`
	DataSource          string    `json:"data_source" db:"data_source"`
	WMONumber           string    `json:"wmo_number" db:"wmo_number"`
	Latitude            float64   `json:"latitude" db:"latitude"`
	Longitude           float64   `json:"longitude" db:"longitude"`
	TimeZone            float64   `json:"time_zone" db:"time_zone"`
	Elevation           float64   `json:"elevation" db:"elevation"`
	RecordsPerHour      int       `json:"records_per_hour" db:"records_per_hour"`
	StartDayOfWeek      string    `json:"start_day_of_week" db:"start_day_of_week"`
	StartDate           string    `json:"start_date" db:"start_date"`
	EndDate             string    `json:"end_date" db:"end_date"`
	IsActual            bool      `json:"is_actual" db:"is_actual"`
	SourcePath          string    `json:"source_path" db:"source_path"`
	Checksum            string    `json:"checksum" db:"checksum"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Observation is one stored data record. Missing EPW values are NULL.
type Observation struct {
	ID                         int64     `json:"id" db:"id"`
	StationID                  uuid.UUID `json:"station_id" db:"station_id"`
	ObservedAt                 time.Time `json:"observed_at" db:"observed_at"`
	Year                       int       `json:"year" db:"year"`
	Month                      int       `json:"month" db:"month"`
	Day                        int       `json:"day" db:"day"`
	Hour                       int       `json:"hour" db:"hour"`
	Minute                     int       `json:"minute" db:"minute"`
	DryBulbTemperature         *float64  `json:"dry_bulb_temperature,omitempty" db:"dry_bulb_temperature"`
	DewPointTemperature        *float64  `json:"dew_point_temperature,omitempty" db:"dew_point_temperature"`
	RelativeHumidity           *float64  `json:"relative_humidity,omitempty" db:"relative_humidity"`
	AtmosphericStationPressure *float64  `json:"atmospheric_station_pressure,omitempty" db:"atmospheric_station_pressure"`
	GlobalHorizontalRadiation  *float64  `json:"global_horizontal_radiation,omitempty" db:"global_horizontal_radiation"`
	DirectNormalRadiation      *float64  `json:"direct_normal_radiation,omitempty" db:"direct_normal_radiation"`
	DiffuseHorizontalRadiation *float64  `json:"diffuse_horizontal_radiation,omitempty" db:"diffuse_horizontal_radiation"`
	WindDirection              *float64  `json:"wind_direction,omitempty" db:"wind_direction"`
	WindSpeed                  *float64  `json:"wind_speed,omitempty" db:"wind_speed"`
	TotalSkyCover              *float64  `json:"total_sky_cover,omitempty" db:"total_sky_cover"`
	OpaqueSkyCover             *float64  `json:"opaque_sky_cover,omitempty" db:"opaque_sky_cover"`
	SnowDepth                  *float64  `json:"snow_depth,omitempty" db:"snow_depth"`
	LiquidPrecipitationDepth   *float64  `json:"liquid_precipitation_depth,omitempty" db:"liquid_precipitation_depth"`
	CreatedAt                  time.Time `json:"created_at" db:"created_at"`
}

// DesignCondition keeps one design block as a name-keyed JSON document.
type DesignCondition struct {
	ID        int64          `json:"id" db:"id"`
	StationID uuid.UUID      `json:"station_id" db:"station_id"`
	Title     string         `json:"title" db:"title"`
	Values    types.JSONText `json:"values" db:"design_values"`
}

// GroundTemperature is one depth with its twelve monthly temperatures.
type GroundTemperature struct {
	ID                  int64           `json:"id" db:"id"`
	StationID           uuid.UUID       `json:"station_id" db:"station_id"`
	DepthM              float64         `json:"depth_m" db:"depth_m"`
	SoilConductivity    float64         `json:"soil_conductivity" db:"soil_conductivity"`
	SoilDensity         float64         `json:"soil_density" db:"soil_density"`
	SoilSpecificHeat    float64         `json:"soil_specific_heat" db:"soil_specific_heat"`
	MonthlyTemperatures pq.Float64Array `json:"monthly_temperatures" db:"monthly_temperatures"`
}

type Holiday struct {
	ID        int64     `json:"id" db:"id"`
	StationID uuid.UUID `json:"station_id" db:"station_id"`
	Name      string    `json:"name" db:"name"`
	Date      string    `json:"date" db:"date"`
}

// FieldStatistics are monthly statistics of one data or computed field.
type FieldStatistics struct {
	ID        int64     `json:"id" db:"id"`
	StationID uuid.UUID `json:"station_id" db:"station_id"`
	Field     string    `json:"field" db:"field"`
	Month     int       `json:"month" db:"month"`
	Count     int       `json:"count" db:"count"`
	Mean      float64   `json:"mean" db:"mean"`
	Min       float64   `json:"min" db:"min"`
	Max       float64   `json:"max" db:"max"`
	StdDev    float64   `json:"std_dev" db:"std_dev"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewStation maps the header of a loaded file. The ID is derived from the
// checksum.
func NewStation(f *epw.File) *Station {
	now := time.Now().UTC()
	return &Station{
		ID:                  StationID(f.Checksum()),
		City:                f.City(),
		StateProvinceRegion: f.StateProvinceRegion(),
		Country:             f.Country(),
		DataSource:          f.DataSource(),
		WMONumber:           f.WMONumber(),
		Latitude:            f.Latitude(),
		Longitude:           f.Longitude(),
		TimeZone:            f.TimeZone(),
		Elevation:           f.Elevation(),
		RecordsPerHour:      f.RecordsPerHour(),
		StartDayOfWeek:      f.StartDayOfWeek().String(),
		StartDate:           f.StartDate().MonthDay(),
		EndDate:             f.EndDate().MonthDay(),
		IsActual:            f.IsActual(),
		SourcePath:          f.Path(),
		Checksum:            f.Checksum(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// ToObservation converts one data point. Hour 24 is stored as midnight of
// the following day.
func ToObservation(stationID uuid.UUID, p epw.DataPoint) (*Observation, error) {
	if stationID == uuid.Nil {
		return nil, &ValidationError{
			Field:   "station_id",
			Value:   stationID.String(),
			Message: "observation needs a station",
		}
	}
	if p.Year() <= 0 {
		return nil, &ValidationError{
			Field:   "year",
			Value:   fmt.Sprint(p.Year()),
			Message: "observation year must be positive",
		}
	}

	obs := &Observation{
		StationID:  stationID,
		ObservedAt: time.Date(p.Year(), time.Month(p.Month()), p.Day(), p.Hour(), p.Minute(), 0, 0, time.UTC),
		Year:       p.Year(),
		Month:      p.Month(),
		Day:        p.Day(),
		Hour:       p.Hour(),
		Minute:     p.Minute(),
		CreatedAt:  time.Now().UTC(),
	}

	fields := []struct {
		dst   **float64
		field epw.DataField
	}{
		{&obs.DryBulbTemperature, epw.DryBulbTemperature},
		{&obs.DewPointTemperature, epw.DewPointTemperature},
		{&obs.RelativeHumidity, epw.RelativeHumidity},
		{&obs.AtmosphericStationPressure, epw.AtmosphericStationPressure},
		{&obs.GlobalHorizontalRadiation, epw.GlobalHorizontalRadiation},
		{&obs.DirectNormalRadiation, epw.DirectNormalRadiation},
		{&obs.DiffuseHorizontalRadiation, epw.DiffuseHorizontalRadiation},
		{&obs.WindDirection, epw.WindDirection},
		{&obs.WindSpeed, epw.WindSpeed},
		{&obs.TotalSkyCover, epw.TotalSkyCover},
		{&obs.OpaqueSkyCover, epw.OpaqueSkyCover},
		{&obs.SnowDepth, epw.SnowDepth},
		{&obs.LiquidPrecipitationDepth, epw.LiquidPrecipitationDepth},
	}
	for _, f := range fields {
		if v, ok := p.GetField(f.field); ok {
			v := v
			*f.dst = &v
		}
	}
	return obs, nil
}

// ToDesignCondition stores every set statistic under its display name.
func ToDesignCondition(stationID uuid.UUID, dc epw.DesignCondition) (*DesignCondition, error) {
	values := make(map[string]float64)
	for f, v := range dc.Fields() {
		values[f.String()] = v
	}
	doc, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("design condition %q: %w", dc.TitleOfDesignCondition(), err)
	}
	return &DesignCondition{
		StationID: stationID,
		Title:     dc.TitleOfDesignCondition(),
		Values:    types.JSONText(doc),
	}, nil
}

func ToGroundTemperature(stationID uuid.UUID, g epw.GroundTemperatureDepth) *GroundTemperature {
	field := func(f epw.DepthField) float64 {
		v, _ := g.GetField(f)
		return v
	}
	return &GroundTemperature{
		StationID:           stationID,
		DepthM:              g.Depth(),
		SoilConductivity:    field(epw.SoilConductivity),
		SoilDensity:         field(epw.SoilDensity),
		SoilSpecificHeat:    field(epw.SoilSpecificHeat),
		MonthlyTemperatures: pq.Float64Array(g.MonthlyTemperatures()),
	}
}

func ToHoliday(stationID uuid.UUID, h epw.Holiday) *Holiday {
	return &Holiday{StationID: stationID, Name: h.Name, Date: h.DateString}
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
